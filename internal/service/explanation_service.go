package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepdeck/prepdeck-backend/internal/apperr"
	"github.com/prepdeck/prepdeck-backend/internal/audit"
	"github.com/prepdeck/prepdeck-backend/internal/generator"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/prepdeck/prepdeck-backend/internal/response"
	"github.com/rs/zerolog"
)

// ExplanationService is the content-addressed explanation cache. The cache
// key is (question version, answer pattern, model, language); a hit returns
// the stored explanation without touching the generator, a miss generates
// once and persists.
type ExplanationService struct {
	explanationRepo *repository.ExplanationRepository
	questionRepo    *repository.QuestionRepository
	sessionRepo     *repository.PracticeSessionRepository
	gen             generator.Generator
	model           string
	language        string
	auditor         *audit.Recorder
	log             zerolog.Logger
}

// NewExplanationService creates a new ExplanationService. model and language
// name the generation configuration baked into every cache key this instance
// produces.
func NewExplanationService(
	explanationRepo *repository.ExplanationRepository,
	questionRepo *repository.QuestionRepository,
	sessionRepo *repository.PracticeSessionRepository,
	gen generator.Generator,
	genModel string,
	language string,
	auditor *audit.Recorder,
	log zerolog.Logger,
) *ExplanationService {
	return &ExplanationService{
		explanationRepo: explanationRepo,
		questionRepo:    questionRepo,
		sessionRepo:     sessionRepo,
		gen:             gen,
		model:           genModel,
		language:        language,
		auditor:         auditor,
		log:             log.With().Str("component", "explanation_service").Logger(),
	}
}

// GetOrCreateForQuestion resolves the question's current version, checks the
// cache for the selection's answer pattern and generates on a miss. The
// second return value reports whether generation actually ran. Concurrent
// misses for the same key converge on a single cached row.
func (s *ExplanationService) GetOrCreateForQuestion(ctx context.Context, questionID uuid.UUID, selected []int) (*model.QuestionAiExplanation, bool, error) {
	if len(selected) == 0 {
		return nil, false, apperr.Validation("selected_answers", "at least one selected answer is required")
	}

	// Fast path: a hit needs neither the full view nor range validation,
	// since the pattern could only have been cached for a valid selection.
	pattern := model.AnswerPattern(selected)
	cached, err := s.explanationRepo.FindByQuestionAndPattern(ctx, questionID, pattern, s.model, s.language)
	if err != nil {
		return nil, false, err
	}
	if cached != nil {
		return cached, false, nil
	}

	view, err := s.getView(ctx, questionID)
	if err != nil {
		return nil, false, err
	}
	for _, idx := range selected {
		if idx < 0 || idx >= len(view.Choices) {
			return nil, false, apperr.Validation("selected_answers", fmt.Sprintf("index %d out of range for %d options", idx, len(view.Choices)))
		}
	}

	generated, err := s.gen.Explain(ctx, s.buildRequest(view, selected))
	if err != nil {
		return nil, false, fmt.Errorf("generate explanation: %w", err)
	}

	// The entry is keyed by the service's configured model, the same name
	// every lookup uses. A generator never names the key.
	entry := &model.QuestionAiExplanation{
		QuestionVersionID: view.Version.ID,
		AnswerPattern:     pattern,
		Model:             s.model,
		Language:          s.language,
		ContentText:       generated.Content,
		TokensTotal:       generated.TokensTotal,
		CostCents:         generated.CostCents,
	}
	stored, created, err := s.explanationRepo.GetOrCreate(ctx, entry)
	if err != nil {
		return nil, false, err
	}

	if created {
		s.auditor.Record(ctx, "system", "explanation.generate", "question_ai_explanation", stored.ID.String(), map[string]any{
			"question_version_id": view.Version.ID.String(),
			"answer_pattern":      pattern,
			"tokens_total":        stored.TokensTotal,
			"cost_cents":          stored.CostCents,
		})
	}
	return stored, created, nil
}

// FindByVersionKey resolves a cached explanation by its full key, including
// keys against versions that are no longer current. Returns a NotFoundError
// on a miss; this path never generates.
func (s *ExplanationService) FindByVersionKey(ctx context.Context, versionID uuid.UUID, selected []int) (*model.QuestionAiExplanation, error) {
	pattern := model.AnswerPattern(selected)
	cached, err := s.explanationRepo.FindByVersionKey(ctx, versionID, pattern, s.model, s.language)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, apperr.NotFound("explanation", versionID.String()+"/"+pattern)
	}
	return cached, nil
}

// LinkToSession associates a cached explanation with a session's snapshot
// slot so the review UI can show what the learner saw.
func (s *ExplanationService) LinkToSession(ctx context.Context, sessionID, questionID, explanationID uuid.UUID) error {
	ok, err := s.sessionRepo.LinkExplanation(ctx, sessionID, questionID, explanationID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("session question", questionID.String())
	}
	return nil
}

// ListRecent returns a page of explanation summaries, newest first.
func (s *ExplanationService) ListRecent(ctx context.Context, page, perPage int) ([]model.ExplanationSummary, *response.Pagination, error) {
	page, perPage = clampPaging(page, perPage)

	summaries, total, err := s.explanationRepo.ListRecent(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if summaries == nil {
		summaries = []model.ExplanationSummary{}
	}

	return summaries, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

// AggregateTotals returns all-time cache spend totals.
func (s *ExplanationService) AggregateTotals(ctx context.Context) (*model.AggregateTotals, error) {
	return s.explanationRepo.AggregateTotals(ctx)
}

// DailyTotals returns zero-filled daily buckets for the trailing window.
// days defaults to 30 and is clamped to [1, 365].
func (s *ExplanationService) DailyTotals(ctx context.Context, days int) ([]model.DailyTotal, error) {
	if days < 1 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	buckets, err := s.explanationRepo.DailyTotals(ctx, days)
	if err != nil {
		return nil, err
	}
	if buckets == nil {
		buckets = []model.DailyTotal{}
	}
	return buckets, nil
}

func (s *ExplanationService) buildRequest(view *model.QuestionView, selected []int) generator.ExplainRequest {
	selectedSet := make(map[int]struct{}, len(selected))
	for _, idx := range selected {
		selectedSet[idx] = struct{}{}
	}

	options := make([]string, len(view.Choices))
	var selectedLabels, correctLabels []string
	for i, c := range view.Choices {
		options[i] = c.ContentText
		if _, ok := selectedSet[i]; ok {
			selectedLabels = append(selectedLabels, c.Label)
		}
		if c.IsCorrect {
			correctLabels = append(correctLabels, c.Label)
		}
	}

	return generator.ExplainRequest{
		StemText:       view.Version.StemText,
		Options:        options,
		SelectedLabels: selectedLabels,
		CorrectLabels:  correctLabels,
		Language:       s.language,
	}
}

// getView mirrors the content service's fatal-vs-ordinary miss mapping so
// explanation callers get the same taxonomy.
func (s *ExplanationService) getView(ctx context.Context, questionID uuid.UUID) (*model.QuestionView, error) {
	view, err := s.questionRepo.GetView(ctx, questionID)
	if err == nil {
		return view, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get question: %w", err)
	}

	exists, exErr := s.questionRepo.HeadExists(ctx, questionID)
	if exErr != nil {
		return nil, fmt.Errorf("check question head: %w", exErr)
	}
	if exists {
		s.log.Error().Str("question_id", questionID.String()).
			Msg("Question exists without a resolvable current version")
		return nil, apperr.FatalNotFound("question version", questionID.String())
	}
	return nil, apperr.NotFound("question", questionID.String())
}
