package app

import "trivia-service/internal/domain"

// SelectQuestions applies the selection policy to the bank, preserving bank order.
// A filter that matches nothing falls back to the whole bank.
func SelectQuestions(bank []domain.Question, sel domain.Selection) []domain.Question {
	selected := make([]domain.Question, 0, len(bank))
	for _, q := range bank {
		if sel.MinID > 0 && q.ID < sel.MinID {
			continue
		}
		if sel.MaxID > 0 && q.ID > sel.MaxID {
			continue
		}
		selected = append(selected, q)
	}
	if len(selected) == 0 {
		selected = append(selected, bank...)
	}
	if sel.Limit > 0 && len(selected) > sel.Limit {
		selected = selected[:sel.Limit]
	}
	return selected
}
