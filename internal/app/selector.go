package app

import (
	"context"

	"contest-quiz-service/internal/domain"
)

// QuestionSelector picks the first N MCQs and first M coding questions by
// creation order. Fewer are served when the bank is short.
type QuestionSelector struct {
	questions QuestionRepository
	settings  QuizSettings
}

func NewQuestionSelector(questions QuestionRepository, settings QuizSettings) *QuestionSelector {
	return &QuestionSelector{questions: questions, settings: settings}
}

func (s *QuestionSelector) LoadQuestionSet(ctx context.Context) (domain.QuestionSet, error) {
	mcq, err := s.questions.FindQuestions(ctx, domain.QuestionFilter{Type: domain.QuestionMCQ, Limit: s.settings.MCQCount})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	coding, err := s.questions.FindQuestions(ctx, domain.QuestionFilter{Type: domain.QuestionCoding, Limit: s.settings.CodingCount})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return domain.QuestionSet{MCQ: mcq, Coding: coding}, nil
}
