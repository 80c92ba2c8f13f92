package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepdeck/prepdeck-backend/internal/apperr"
	"github.com/prepdeck/prepdeck-backend/internal/audit"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/prepdeck/prepdeck-backend/internal/response"
	"github.com/rs/zerolog"
)

// ContentService owns the question/version/choice lifecycle. Content edits
// never mutate a version in place: they retire the current version and
// install a new one, so sessions and explanations keyed to old versions
// stay historically accurate.
type ContentService struct {
	questionRepo *repository.QuestionRepository
	taxonomyRepo *repository.TaxonomyRepository
	auditor      *audit.Recorder
	log          zerolog.Logger
}

// NewContentService creates a new ContentService.
func NewContentService(
	questionRepo *repository.QuestionRepository,
	taxonomyRepo *repository.TaxonomyRepository,
	auditor *audit.Recorder,
	log zerolog.Logger,
) *ContentService {
	return &ContentService{
		questionRepo: questionRepo,
		taxonomyRepo: taxonomyRepo,
		auditor:      auditor,
		log:          log.With().Str("component", "content_service").Logger(),
	}
}

// CreateQuestion validates the input and creates the question with its
// first version in one transaction. Returns the new question id.
func (s *ContentService) CreateQuestion(ctx context.Context, actor string, req *model.CreateQuestionRequest) (uuid.UUID, error) {
	q, v, choices, err := s.prepare(ctx, req)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.questionRepo.Create(ctx, q, v, choices); err != nil {
		return uuid.Nil, fmt.Errorf("create question: %w", err)
	}

	s.auditor.Record(ctx, actor, "question.create", "question", q.ID.String(), nil)
	return q.ID, nil
}

// prepare runs all pre-write validation and materializes the rows a create
// will insert. No partial effect on failure.
func (s *ContentService) prepare(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, *model.QuestionVersion, []model.Choice, error) {
	if len(req.Options) == 0 {
		return nil, nil, nil, apperr.Validation("options", "at least one option is required")
	}

	correct, err := resolveCorrectSet(req.Kind, req.Correct, len(req.Options))
	if err != nil {
		return nil, nil, nil, err
	}

	ok, err := s.taxonomyRepo.SubjectExists(ctx, req.SubjectID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("check subject: %w", err)
	}
	if !ok {
		return nil, nil, nil, apperr.NotFound("subject", req.SubjectID.String())
	}
	if req.ExamID != nil {
		ok, err := s.taxonomyRepo.ExamExists(ctx, *req.ExamID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("check exam: %w", err)
		}
		if !ok {
			return nil, nil, nil, apperr.NotFound("exam", req.ExamID.String())
		}
	}

	q := &model.Question{
		SubjectID:  req.SubjectID,
		ExamID:     req.ExamID,
		Kind:       req.Kind,
		Difficulty: req.Difficulty,
		Domain:     req.Domain,
		Source:     req.Source,
		Year:       req.Year,
		Published:  req.Published,
	}

	explanation := ""
	if req.ExplanationText != nil {
		explanation = *req.ExplanationText
	}
	v := &model.QuestionVersion{
		StemText:        req.StemText,
		ExplanationText: req.ExplanationText,
		HasMathMarkup:   containsMathMarkup(req.StemText, explanation),
	}

	return q, v, buildChoices(req.Options, correct), nil
}

// UpdateQuestion applies metadata changes directly and turns any content
// change into a fresh immutable version. A question that exists but has no
// current version is an invariant violation, logged loudly and surfaced as
// a fatal not-found.
func (s *ContentService) UpdateQuestion(ctx context.Context, actor string, req *model.UpdateQuestionRequest) error {
	view, err := s.getView(ctx, req.ID)
	if err != nil {
		return err
	}

	if req.HasContentChange() {
		v, choices, err := s.nextVersion(view, req)
		if err != nil {
			return err
		}
		if err := s.questionRepo.ReplaceCurrentVersion(ctx, req.ID, v, choices); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				s.log.Error().Str("question_id", req.ID.String()).
					Msg("Question lost its current version during update")
				return apperr.FatalNotFound("question version", req.ID.String())
			}
			return fmt.Errorf("replace version: %w", err)
		}
	}

	if req.Difficulty != nil || req.Domain != nil || req.Source != nil || req.Year != nil || req.Published != nil {
		if _, err := s.questionRepo.UpdateHead(ctx, req); err != nil {
			return err
		}
	}

	s.auditor.Record(ctx, actor, "question.update", "question", req.ID.String(), map[string]any{
		"content_change": req.HasContentChange(),
	})
	return nil
}

// nextVersion builds the replacement version, copying every field the
// update left unspecified from the prior current version.
func (s *ContentService) nextVersion(view *model.QuestionView, req *model.UpdateQuestionRequest) (*model.QuestionVersion, []model.Choice, error) {
	stem := view.Version.StemText
	if req.StemText != nil {
		stem = *req.StemText
	}
	explanation := view.Version.ExplanationText
	if req.ExplanationText != nil {
		explanation = req.ExplanationText
	}

	var choices []model.Choice
	if len(req.Options) > 0 {
		if req.Correct == nil {
			return nil, nil, apperr.Validation("correct", "required when options are replaced")
		}
		correct, err := resolveCorrectSet(view.Question.Kind, *req.Correct, len(req.Options))
		if err != nil {
			return nil, nil, err
		}
		choices = buildChoices(req.Options, correct)
	} else {
		// Option set unchanged: carry the prior choices into the new
		// version as fresh rows, optionally with a new correct mapping.
		correct := make([]int, 0, len(view.Choices))
		if req.Correct != nil {
			var err error
			correct, err = resolveCorrectSet(view.Question.Kind, *req.Correct, len(view.Choices))
			if err != nil {
				return nil, nil, err
			}
		} else {
			for i, c := range view.Choices {
				if c.IsCorrect {
					correct = append(correct, i)
				}
			}
		}
		options := make([]model.OptionInput, len(view.Choices))
		for i, c := range view.Choices {
			options[i] = model.OptionInput{Label: c.Label, ContentText: c.ContentText}
		}
		choices = buildChoices(options, correct)
	}

	explanationText := ""
	if explanation != nil {
		explanationText = *explanation
	}
	v := &model.QuestionVersion{
		StemText:        stem,
		ExplanationText: explanation,
		HasMathMarkup:   containsMathMarkup(stem, explanationText),
	}
	return v, choices, nil
}

// GetQuestion resolves a question through its current version pointer.
func (s *ContentService) GetQuestion(ctx context.Context, id uuid.UUID) (*model.QuestionView, error) {
	return s.getView(ctx, id)
}

func (s *ContentService) getView(ctx context.Context, id uuid.UUID) (*model.QuestionView, error) {
	view, err := s.questionRepo.GetView(ctx, id)
	if err == nil {
		return view, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get question: %w", err)
	}

	// Distinguish an ordinary missing question from one whose current
	// version pointer is broken.
	exists, exErr := s.questionRepo.HeadExists(ctx, id)
	if exErr != nil {
		return nil, fmt.Errorf("check question head: %w", exErr)
	}
	if exists {
		s.log.Error().Str("question_id", id.String()).
			Msg("Question exists without a resolvable current version")
		return nil, apperr.FatalNotFound("question version", id.String())
	}
	return nil, apperr.NotFound("question", id.String())
}

// ListByExam retrieves a filtered page of an exam's questions.
func (s *ContentService) ListByExam(ctx context.Context, examID uuid.UUID, filters model.QuestionFilters, page, perPage int) ([]model.QuestionView, *response.Pagination, error) {
	page, perPage = clampPaging(page, perPage)

	views, total, err := s.questionRepo.ListByExam(ctx, examID, filters, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if views == nil {
		views = []model.QuestionView{}
	}

	return views, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

// DeleteQuestion removes a question and everything hanging off it.
func (s *ContentService) DeleteQuestion(ctx context.Context, actor string, id uuid.UUID) error {
	ok, err := s.questionRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("question", id.String())
	}

	s.auditor.Record(ctx, actor, "question.delete", "question", id.String(), nil)
	return nil
}

// BulkCreate imports a batch of questions in one transaction. Items that
// fail pre-write validation are reported together in a PartialFailureError
// before anything is written; a storage error aborts the whole batch with
// nothing committed.
func (s *ContentService) BulkCreate(ctx context.Context, actor string, reqs []model.CreateQuestionRequest) ([]uuid.UUID, error) {
	if len(reqs) == 0 {
		return nil, apperr.Validation("questions", "batch is empty")
	}

	items := make([]repository.BatchItem, 0, len(reqs))
	var failures []apperr.ItemFailure
	for i := range reqs {
		q, v, choices, err := s.prepare(ctx, &reqs[i])
		if err != nil {
			failures = append(failures, apperr.ItemFailure{Index: i, Err: err})
			continue
		}
		items = append(items, repository.BatchItem{Question: q, Version: v, Choices: choices})
	}
	if len(failures) > 0 {
		return nil, &apperr.PartialFailureError{
			Attempted: len(reqs),
			Succeeded: 0,
			Failures:  failures,
		}
	}

	ids, err := s.questionRepo.CreateBatch(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("bulk create: %w", err)
	}

	s.auditor.Record(ctx, actor, "question.bulk_create", "question", "", map[string]any{
		"count": len(ids),
	})
	return ids, nil
}
