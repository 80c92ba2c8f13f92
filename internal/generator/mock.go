package generator

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator returns canned explanations for local development and
// tests. It never leaves the process.
type MockGenerator struct{}

// NewMockGenerator creates a new MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Explain implements Generator.
func (m *MockGenerator) Explain(ctx context.Context, req ExplainRequest) (*GeneratedExplanation, error) {
	verdict := "correct"
	if strings.Join(req.SelectedLabels, ",") != strings.Join(req.CorrectLabels, ",") {
		verdict = "not correct"
	}

	content := fmt.Sprintf(
		"[Mock] Your selection (%s) is %s. The correct answer is %s. This placeholder explanation covers the question %q.",
		strings.Join(req.SelectedLabels, ", "), verdict,
		strings.Join(req.CorrectLabels, ", "),
		truncate(req.StemText, 60),
	)

	return &GeneratedExplanation{
		Content:     content,
		TokensTotal: 420,
		CostCents:   1,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
