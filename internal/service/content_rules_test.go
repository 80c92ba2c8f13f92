package service

import (
	"testing"

	"github.com/prepdeck/prepdeck-backend/internal/apperr"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

func intPtr(n int) *int { return &n }

func TestOptionLabel(t *testing.T) {
	cases := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
	}
	for _, tc := range cases {
		if got := optionLabel(tc.index); got != tc.want {
			t.Errorf("optionLabel(%d) = %q, want %q", tc.index, got, tc.want)
		}
	}
}

func TestContainsMathMarkup(t *testing.T) {
	cases := []struct {
		name string
		stem string
		expl string
		want bool
	}{
		{"plain text", "What is the capital of France?", "Paris is the capital.", false},
		{"inline latex", `Solve \(x^2 = 4\)`, "", true},
		{"display latex", `Evaluate \[\int_0^1 x\,dx\]`, "", true},
		{"dollar block", "Compute $$1+1$$", "", true},
		{"frac command", `Simplify \frac{1}{2} + \frac{1}{3}`, "", true},
		{"markup only in explanation", "Pick the right graph.", `Because \sqrt{2} is irrational.`, true},
		{"begin environment", `Given \begin{matrix}1&0\end{matrix}`, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := containsMathMarkup(tc.stem, tc.expl); got != tc.want {
				t.Errorf("containsMathMarkup = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolveCorrectSetSingle(t *testing.T) {
	got, err := resolveCorrectSet(model.QuestionKindSingle, model.CorrectSpec{Index: intPtr(2)}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("correct set = %v, want [2]", got)
	}
}

func TestResolveCorrectSetRejections(t *testing.T) {
	cases := []struct {
		name        string
		kind        model.QuestionKind
		spec        model.CorrectSpec
		optionCount int
	}{
		{"single without index", model.QuestionKindSingle, model.CorrectSpec{}, 4},
		{"single with indices arm", model.QuestionKindSingle, model.CorrectSpec{Index: intPtr(0), Indices: []int{1}}, 4},
		{"single index out of range", model.QuestionKindSingle, model.CorrectSpec{Index: intPtr(4)}, 4},
		{"multi without indices", model.QuestionKindMulti, model.CorrectSpec{}, 4},
		{"multi with index arm", model.QuestionKindMulti, model.CorrectSpec{Index: intPtr(0), Indices: []int{1}}, 4},
		{"multi index out of range", model.QuestionKindMulti, model.CorrectSpec{Indices: []int{1, 4}}, 4},
		{"unknown kind", model.QuestionKind("essay"), model.CorrectSpec{Index: intPtr(0)}, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := resolveCorrectSet(tc.kind, tc.spec, tc.optionCount); !apperr.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestResolveCorrectSetMultiDeduplicates(t *testing.T) {
	got, err := resolveCorrectSet(model.QuestionKindMulti, model.CorrectSpec{Indices: []int{2, 0, 2}}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("correct set = %v, want two unique indices", got)
	}
}

func TestBuildChoices(t *testing.T) {
	options := []model.OptionInput{
		{ContentText: "first"},
		{Label: "X", ContentText: "second"},
		{ContentText: "third"},
	}
	choices := buildChoices(options, []int{1})

	if len(choices) != 3 {
		t.Fatalf("got %d choices, want 3", len(choices))
	}
	if choices[0].Label != "A" || choices[1].Label != "X" || choices[2].Label != "C" {
		t.Errorf("labels = %q %q %q, want A X C", choices[0].Label, choices[1].Label, choices[2].Label)
	}
	for i, c := range choices {
		if c.SortOrder != i+1 {
			t.Errorf("choice %d sort order = %d, want %d", i, c.SortOrder, i+1)
		}
	}
	if choices[0].IsCorrect || !choices[1].IsCorrect || choices[2].IsCorrect {
		t.Errorf("is_correct flags wrong: %v %v %v", choices[0].IsCorrect, choices[1].IsCorrect, choices[2].IsCorrect)
	}
}

func TestEvaluateSelection(t *testing.T) {
	cases := []struct {
		name     string
		selected []int
		correct  []int
		want     bool
	}{
		{"single correct", []int{2}, []int{2}, true},
		{"single wrong", []int{1}, []int{2}, false},
		{"multi exact", []int{0, 3}, []int{3, 0}, true},
		{"multi subset", []int{0}, []int{0, 3}, false},
		{"multi superset", []int{0, 1, 3}, []int{0, 3}, false},
		{"duplicates collapse", []int{0, 3, 3, 0}, []int{0, 3}, true},
		{"empty selection", nil, []int{0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := evaluateSelection(tc.selected, tc.correct); got != tc.want {
				t.Errorf("evaluateSelection(%v, %v) = %v, want %v", tc.selected, tc.correct, got, tc.want)
			}
		})
	}
}

func TestClampPaging(t *testing.T) {
	cases := []struct {
		page, perPage         int
		wantPage, wantPerPage int
	}{
		{0, 0, 1, 10},
		{-3, -1, 1, 10},
		{2, 25, 2, 25},
		{1, 500, 1, 100},
	}
	for _, tc := range cases {
		page, perPage := clampPaging(tc.page, tc.perPage)
		if page != tc.wantPage || perPage != tc.wantPerPage {
			t.Errorf("clampPaging(%d, %d) = (%d, %d), want (%d, %d)",
				tc.page, tc.perPage, page, perPage, tc.wantPage, tc.wantPerPage)
		}
	}
}
