// Package generator defines the explanation-generation contract the
// explanation cache invokes on a miss, plus an Anthropic-backed client and
// a mock for development and tests.
package generator

import (
	"context"
	"fmt"
	"strings"
)

// ExplainRequest carries the question content and the learner's answer.
type ExplainRequest struct {
	StemText       string
	Options        []string
	SelectedLabels []string
	CorrectLabels  []string
	Language       string
}

// GeneratedExplanation is the generation result the cache persists. The
// model name is not part of it: the cache keys rows by the model it was
// configured with, never by what a generator reports.
type GeneratedExplanation struct {
	Content     string
	TokensTotal int
	CostCents   int
}

// Generator produces a per-answer explanation. Implementations must be safe
// for concurrent use; the cache only calls them on a miss.
type Generator interface {
	Explain(ctx context.Context, req ExplainRequest) (*GeneratedExplanation, error)
}

const systemPrompt = `You are a patient exam tutor. Given a question, its options, the learner's selected answer(s) and the correct answer(s), explain in the requested language why the correct answer is right and, when the learner chose differently, where their reasoning likely went wrong. Be concrete and concise; do not restate the full question.`

func buildUserPrompt(req ExplainRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n\nQuestion:\n%s\n\nOptions:\n", req.Language, req.StemText)
	for i, opt := range req.Options {
		fmt.Fprintf(&b, "%c. %s\n", 'A'+rune(i%26), opt)
	}
	fmt.Fprintf(&b, "\nLearner selected: %s\n", strings.Join(req.SelectedLabels, ", "))
	fmt.Fprintf(&b, "Correct answer(s): %s\n", strings.Join(req.CorrectLabels, ", "))
	return b.String()
}
