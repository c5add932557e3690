package app

import (
	"context"
	"time"

	"contest-quiz-service/internal/domain"
)

// QuestionRepository persists the question bank. FindQuestions returns
// questions ordered by creation time, then id.
type QuestionRepository interface {
	InsertQuestion(ctx context.Context, q domain.Question) (string, error)
	FindQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// StudentRepository persists registrations. InsertStudent returns
// domain.ErrDuplicateRegistration when the email is taken.
type StudentRepository interface {
	InsertStudent(ctx context.Context, s domain.Student) (string, error)
	FindStudent(ctx context.Context, id string) (domain.Student, error)
	FindStudentByEmail(ctx context.Context, email string) (domain.Student, error)
	FindStudents(ctx context.Context) ([]domain.Student, error)
}

// ResultRepository persists completed attempts. InsertResult returns
// domain.ErrAlreadySubmitted when the student already has a result.
// FindResults is ordered by submission time ascending.
type ResultRepository interface {
	InsertResult(ctx context.Context, r domain.Result) (string, error)
	FindResultByStudent(ctx context.Context, studentID string) (domain.Result, error)
	FindResultByEmail(ctx context.Context, email string) (domain.Result, error)
	FindResults(ctx context.Context) ([]domain.Result, error)
}

// Store is the full Persistence Layer. Single-document lookups return
// domain.ErrNotFound on a miss.
type Store interface {
	QuestionRepository
	StudentRepository
	ResultRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// SessionRepository holds in-progress quizzes keyed by student id
// (in-memory, Redis, etc). Get returns domain.ErrSessionNotFound on a miss.
type SessionRepository interface {
	Save(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, studentID string) (domain.Session, error)
	Delete(ctx context.Context, studentID string) error
	List(ctx context.Context) ([]domain.Session, error)
}

// QuestionSetLoader builds the question set from the backing store.
type QuestionSetLoader interface {
	LoadQuestionSet(ctx context.Context) (domain.QuestionSet, error)
}

// QuestionSetSource serves the (possibly cached) question set.
type QuestionSetSource interface {
	QuestionSet(ctx context.Context) (domain.QuestionSet, error)
	Invalidate(ctx context.Context)
}

// QuizSettings are the fixed quiz parameters shared by both services.
type QuizSettings struct {
	Duration    time.Duration
	MCQCount    int
	CodingCount int
}

// DefaultQuizSettings is 5 MCQs and 1 coding question in 40 minutes.
func DefaultQuizSettings() QuizSettings {
	return QuizSettings{Duration: 40 * time.Minute, MCQCount: 5, CodingCount: 1}
}
