package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"contest-quiz-service/internal/app"
	"contest-quiz-service/internal/domain"
	"contest-quiz-service/internal/infra/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store    *memory.Store
	sessions *memory.SessionStore
	admin    *app.AdminService
	students *app.StudentService
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newFakeClock()
	store := memory.NewStore()
	sessions := memory.NewSessionStore(time.Hour).WithClock(clock.Now)
	settings := app.DefaultQuizSettings()
	sets := memory.NewQuestionSetCache(app.NewQuestionSelector(store, settings), time.Minute)

	admin, err := app.NewAdminService(app.AdminCredentials{Username: "admin", Password: "s3cret"}, store, sets, settings)
	if err != nil {
		t.Fatalf("admin service: %v", err)
	}
	return &fixture{
		store:    store,
		sessions: sessions,
		admin:    admin.WithClock(clock.Now),
		students: app.NewStudentService(store, sessions, sets, settings).WithClock(clock.Now),
		clock:    clock,
	}
}

// seedQuiz adds five MCQs whose correct answer is "A<i>" and one coding
// question expecting "55". Each is one second apart for stable ordering.
func (f *fixture) seedQuiz(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := f.admin.AddQuestion(ctx, app.QuestionInput{
			Type:          "mcq",
			Text:          fmt.Sprintf("Question %d", i),
			Options:       []string{fmt.Sprintf("A%d", i), "B", "C", "D"},
			CorrectAnswer: fmt.Sprintf("A%d", i),
		})
		if err != nil {
			t.Fatalf("add mcq %d: %v", i, err)
		}
		f.clock.Advance(time.Second)
	}
	if _, err := f.admin.AddQuestion(ctx, app.QuestionInput{
		Type:          "coding",
		Text:          "Print the sum of 1..10",
		CorrectAnswer: "55",
		SampleInput:   "10",
		SampleOutput:  "55",
	}); err != nil {
		t.Fatalf("add coding: %v", err)
	}
	f.clock.Advance(time.Second)
}

func correctAnswers(quiz app.ActiveQuiz) map[string]string {
	answers := map[string]string{}
	for _, q := range quiz.Questions.All() {
		answers[q.ID] = q.CorrectAnswer
	}
	return answers
}

func mustStart(t *testing.T, f *fixture, name, email string) (domain.Student, app.ActiveQuiz) {
	t.Helper()
	ctx := context.Background()
	st, err := f.students.Register(ctx, name, email)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	quiz, err := f.students.StartQuiz(ctx, st.ID)
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	return st, quiz
}
