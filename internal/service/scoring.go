package service

import (
	"fmt"

	"github.com/stemsi/exam-proctor/internal/model"
)

// AnswerKey maps question ID to its correct option for one exam.
type AnswerKey map[int64]model.Option

// Grade turns submitted pairs into Answer rows and a score: one point per
// exact match, nothing for wrong or unanswered questions. A question outside
// the key fails with ErrQuestionNotFound.
func Grade(attemptID int64, key AnswerKey, inputs []model.AnswerInput) ([]model.Answer, int, error) {
	answers := make([]model.Answer, 0, len(inputs))
	seen := make(map[int64]struct{}, len(inputs))
	score := 0

	for _, in := range inputs {
		opt := model.Option(in.SelectedOption)
		if !opt.Valid() {
			return nil, 0, fmt.Errorf("question %d: %w", in.QuestionID, ErrInvalidOption)
		}
		correct, ok := key[in.QuestionID]
		if !ok {
			return nil, 0, fmt.Errorf("question %d: %w", in.QuestionID, ErrQuestionNotFound)
		}
		if _, dup := seen[in.QuestionID]; dup {
			return nil, 0, fmt.Errorf("question %d: %w", in.QuestionID, ErrDuplicateAnswer)
		}
		seen[in.QuestionID] = struct{}{}

		answers = append(answers, model.Answer{
			AttemptID:      attemptID,
			QuestionID:     in.QuestionID,
			SelectedOption: opt,
		})
		if opt == correct {
			score++
		}
	}

	return answers, score, nil
}

// NewAnswerKey builds the key from catalog questions.
func NewAnswerKey(questions []model.Question) AnswerKey {
	key := make(AnswerKey, len(questions))
	for _, q := range questions {
		key[q.ID] = q.CorrectOption
	}
	return key
}
