package app

import (
	"testing"

	"trivia-service/internal/domain"
)

func ids(questions []domain.Question) []int {
	out := make([]int, len(questions))
	for i, q := range questions {
		out[i] = q.ID
	}
	return out
}

func TestSelectQuestions(t *testing.T) {
	bank := []domain.Question{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}}

	cases := []struct {
		name string
		sel  domain.Selection
		want []int
	}{
		{"no constraint", domain.Selection{}, []int{1, 2, 3, 4, 5}},
		{"id range", domain.Selection{MinID: 2, MaxID: 4}, []int{2, 3, 4}},
		{"limit", domain.Selection{Limit: 2}, []int{1, 2}},
		{"range and limit", domain.Selection{MinID: 3, Limit: 2}, []int{3, 4}},
		{"empty match falls back", domain.Selection{MinID: 10}, []int{1, 2, 3, 4, 5}},
	}
	for _, tc := range cases {
		got := ids(SelectQuestions(bank, tc.sel))
		if len(got) != len(tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
			}
		}
	}
}
