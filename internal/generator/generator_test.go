package generator

import (
	"context"
	"strings"
	"testing"
)

func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt(ExplainRequest{
		StemText:       "What is 2+2?",
		Options:        []string{"3", "4", "5"},
		SelectedLabels: []string{"A"},
		CorrectLabels:  []string{"B"},
		Language:       "en",
	})

	for _, want := range []string{"What is 2+2?", "A. 3", "B. 4", "C. 5", "Learner selected: A", "Correct answer(s): B", "Language: en"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestMockGeneratorVerdict(t *testing.T) {
	gen := NewMockGenerator()

	correct, err := gen.Explain(context.Background(), ExplainRequest{
		SelectedLabels: []string{"B"},
		CorrectLabels:  []string{"B"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(correct.Content, "not correct") {
		t.Error("matching selection must be reported as correct")
	}

	wrong, _ := gen.Explain(context.Background(), ExplainRequest{
		SelectedLabels: []string{"A"},
		CorrectLabels:  []string{"B"},
	})
	if !strings.Contains(wrong.Content, "not correct") {
		t.Error("mismatching selection must be reported as not correct")
	}
	if wrong.CostCents < 1 {
		t.Error("generation cost must never be attributed zero")
	}
}

func TestEstimateCostCentsRoundsUp(t *testing.T) {
	if got := estimateCostCents(1, 1); got < 1 {
		t.Errorf("tiny call cost = %d, want at least 1", got)
	}
	small := estimateCostCents(1000, 500)
	large := estimateCostCents(100000, 50000)
	if large <= small {
		t.Errorf("cost must grow with tokens: small=%d large=%d", small, large)
	}
}
