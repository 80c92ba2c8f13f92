package service

import (
	"fmt"
	"strings"

	"github.com/prepdeck/prepdeck-backend/internal/apperr"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// mathMarkupSequences are the control sequences whose presence flags a
// version as containing math markup. A rendering hint only; correctness
// never depends on it.
var mathMarkupSequences = []string{
	`\(`, `\[`, `$$`,
	`\frac`, `\sqrt`, `\sum`, `\int`, `\begin{`,
}

// containsMathMarkup scans stem and explanation text for markup control
// sequences.
func containsMathMarkup(texts ...string) bool {
	for _, text := range texts {
		for _, seq := range mathMarkupSequences {
			if strings.Contains(text, seq) {
				return true
			}
		}
	}
	return false
}

// optionLabel returns the default label for the option at zero-based
// position i: A…Z, then AA, AB, …
func optionLabel(i int) string {
	label := ""
	for {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
		if i < 0 {
			return label
		}
	}
}

// resolveCorrectSet validates the correct-answer union against the question
// kind and option count and returns the zero-based correct indices, sorted
// unique. Single-select questions take exactly one index; multi-select
// questions take a non-empty index set.
func resolveCorrectSet(kind model.QuestionKind, spec model.CorrectSpec, optionCount int) ([]int, error) {
	switch kind {
	case model.QuestionKindSingle:
		if spec.Index == nil || len(spec.Indices) > 0 {
			return nil, apperr.Validation("correct", "single-select questions take exactly one correct index")
		}
		if *spec.Index < 0 || *spec.Index >= optionCount {
			return nil, apperr.Validation("correct.index", fmt.Sprintf("index %d out of range for %d options", *spec.Index, optionCount))
		}
		return []int{*spec.Index}, nil

	case model.QuestionKindMulti:
		if spec.Index != nil || len(spec.Indices) == 0 {
			return nil, apperr.Validation("correct", "multi-select questions take a non-empty correct index set")
		}
		seen := make(map[int]struct{}, len(spec.Indices))
		set := make([]int, 0, len(spec.Indices))
		for _, idx := range spec.Indices {
			if idx < 0 || idx >= optionCount {
				return nil, apperr.Validation("correct.indices", fmt.Sprintf("index %d out of range for %d options", idx, optionCount))
			}
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			set = append(set, idx)
		}
		return set, nil

	default:
		return nil, apperr.Validation("kind", fmt.Sprintf("unknown question kind %q", kind))
	}
}

// buildChoices materializes option inputs into choice rows: 1-based
// sort_order from input position, default labels where none were given,
// is_correct from the resolved correct set.
func buildChoices(options []model.OptionInput, correct []int) []model.Choice {
	correctSet := make(map[int]struct{}, len(correct))
	for _, idx := range correct {
		correctSet[idx] = struct{}{}
	}

	choices := make([]model.Choice, len(options))
	for i, opt := range options {
		label := opt.Label
		if label == "" {
			label = optionLabel(i)
		}
		_, isCorrect := correctSet[i]
		choices[i] = model.Choice{
			Label:       label,
			ContentText: opt.ContentText,
			IsCorrect:   isCorrect,
			SortOrder:   i + 1,
		}
	}
	return choices
}

// evaluateSelection grades a selection against the correct index set:
// set equality, order-independent, duplicates collapsed. For single-select
// questions the correct set has one element, so this reduces to equality of
// the one selected index.
func evaluateSelection(selected, correct []int) bool {
	selectedSet := make(map[int]struct{}, len(selected))
	for _, idx := range selected {
		selectedSet[idx] = struct{}{}
	}
	correctSet := make(map[int]struct{}, len(correct))
	for _, idx := range correct {
		correctSet[idx] = struct{}{}
	}

	if len(selectedSet) != len(correctSet) {
		return false
	}
	for idx := range selectedSet {
		if _, ok := correctSet[idx]; !ok {
			return false
		}
	}
	return true
}

// clampPaging normalizes page/perPage the way every list endpoint does.
func clampPaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
