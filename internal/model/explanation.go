package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionAiExplanation is one cached per-answer explanation. The tuple
// (QuestionVersionID, AnswerPattern, Model, Language) is the cache key and
// is unique; generation cost is recorded so operators can audit spend.
type QuestionAiExplanation struct {
	ID                uuid.UUID `json:"id"`
	QuestionVersionID uuid.UUID `json:"question_version_id"`
	AnswerPattern     string    `json:"answer_pattern"`
	Model             string    `json:"model"`
	Language          string    `json:"language"`
	ContentText       string    `json:"content_text"`
	TokensTotal       int       `json:"tokens_total"`
	CostCents         int       `json:"cost_cents"`
	CreatedAt         time.Time `json:"created_at"`
}

/// AnswerPattern builds the content-addressed key for a selected answer set:
// indices sorted, duplicates collapsed, comma-joined. [0,2,2,1] and [1,2,0]
// produce the same key.
func AnswerPattern(selected []int) string {
	if len(selected) == 0 {
		return ""
	}
	seen := make(map[int]struct{}, len(selected))
	uniq := make([]int, 0, len(selected))
	for _, idx := range selected {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		uniq = append(uniq, idx)
	}
	sort.Ints(uniq)

	parts := make([]string, len(uniq))
	for i, idx := range uniq {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ",")
}

// ExplanationSummary is a cached explanation joined with content context
// for operator review.
type ExplanationSummary struct {
	ID            uuid.UUID `json:"id"`
	QuestionID    uuid.UUID `json:"question_id"`
	StemText      string    `json:"stem_text"`
	SubjectName   string    `json:"subject_name"`
	ExamTitle     *string   `json:"exam_title,omitempty"`
	AnswerPattern string    `json:"answer_pattern"`
	Model         string    `json:"model"`
	Language      string    `json:"language"`
	TokensTotal   int       `json:"tokens_total"`
	CostCents     int       `json:"cost_cents"`
	CreatedAt     time.Time `json:"created_at"`
}

// AggregateTotals are the all-time explanation cache totals.
type AggregateTotals struct {
	TotalCount     int64 `json:"total_count"`
	TokensTotal    int64 `json:"tokens_total"`
	CostCentsTotal int64 `json:"cost_cents_total"`
}

// DailyTotal is one day's bucket in a trailing window. Days with no
// activity still appear, zero-filled.
type DailyTotal struct {
	Date        time.Time `json:"date"`
	TotalCount  int64     `json:"total_count"`
	TokensTotal int64     `json:"tokens_total"`
	CostCents   int64     `json:"cost_cents"`
}
