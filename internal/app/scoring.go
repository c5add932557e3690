package app

import (
	"strings"

	"contest-quiz-service/internal/domain"
)

// Score grades answers against questions. MCQs need an exact, case-sensitive
// match; coding answers match after trimming surrounding whitespace. There is
// no partial credit.
func Score(questions []domain.Question, answers map[string]string) (int, int, []domain.Attempt) {
	score, total := 0, 0
	attempts := make([]domain.Attempt, 0, len(questions))
	for _, q := range questions {
		marks := q.Marks
		if marks == 0 {
			marks = domain.MarksFor(q.Type)
		}
		answer := answers[q.ID]
		correct := isCorrect(q, answer)
		awarded := 0
		if correct {
			awarded = marks
		}
		score += awarded
		total += marks
		attempts = append(attempts, domain.Attempt{
			QuestionID: q.ID,
			Type:       q.Type,
			Answer:     answer,
			Correct:    correct,
			Awarded:    awarded,
			Marks:      marks,
		})
	}
	return score, total, attempts
}

func isCorrect(q domain.Question, answer string) bool {
	switch q.Type {
	case domain.QuestionMCQ:
		return answer != "" && answer == q.CorrectAnswer
	case domain.QuestionCoding:
		expected := strings.TrimSpace(q.CorrectAnswer)
		return expected != "" && strings.TrimSpace(answer) == expected
	default:
		return false
	}
}
