package exams

import (
	"github.com/google/uuid"

	"github.com/skillforge/marketplace/internal/models"
)

// Score is the graded outcome of one submission.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// Grade counts the questions whose chosen option is marked correct. answers maps
// question id to option id; unanswered questions and options belonging to another
// question count as wrong. Percent is floor(correct*100/total), 0 without questions.
func Grade(exam *models.Exam, answers map[uuid.UUID]uuid.UUID) Score {
	s := Score{Total: len(exam.Questions)}
	for _, q := range exam.Questions {
		chosen, ok := answers[q.ID]
		if !ok {
			continue
		}
		for _, opt := range q.Options {
			if opt.ID == chosen {
				if opt.IsCorrect {
					s.Correct++
				}
				break
			}
		}
	}
	if s.Total > 0 {
		s.Percent = s.Correct * 100 / s.Total
	}
	return s
}

// Passed reports whether the score meets the passing percentage.
func (s Score) Passed(passingPercent int) bool {
	return s.Total > 0 && s.Percent >= passingPercent
}
