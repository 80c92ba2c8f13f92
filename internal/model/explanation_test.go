package model

import "testing"

func TestAnswerPattern(t *testing.T) {
	cases := []struct {
		name     string
		selected []int
		want     string
	}{
		{"single", []int{2}, "2"},
		{"sorted", []int{2, 0, 1}, "0,1,2"},
		{"duplicates collapsed", []int{0, 2, 2, 1}, "0,1,2"},
		{"order independent", []int{1, 2, 0}, "0,1,2"},
		{"empty", nil, ""},
		{"double digit", []int{10, 3}, "3,10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AnswerPattern(tc.selected); got != tc.want {
				t.Errorf("AnswerPattern(%v) = %q, want %q", tc.selected, got, tc.want)
			}
		})
	}
}

func TestAnswerPatternEquivalence(t *testing.T) {
	// The cache key must coincide for every permutation-with-duplicates of
	// the same answer set.
	if AnswerPattern([]int{0, 2, 2, 1}) != AnswerPattern([]int{1, 2, 0}) {
		t.Error("equivalent selections must produce the same pattern")
	}
	if AnswerPattern([]int{0, 1}) == AnswerPattern([]int{0, 2}) {
		t.Error("different selections must produce different patterns")
	}
}
