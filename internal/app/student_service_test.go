package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"contest-quiz-service/internal/domain"
)

func TestEndToEndScoreIsNine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	st, quiz := mustStart(t, f, "Ava", "ava@example.com")
	if len(quiz.Questions.MCQ) != 5 || len(quiz.Questions.Coding) != 1 {
		t.Fatalf("expected 5 mcq + 1 coding, got %d + %d", len(quiz.Questions.MCQ), len(quiz.Questions.Coding))
	}

	answers := correctAnswers(quiz)
	answers[quiz.Questions.MCQ[2].ID] = "B"
	answers[quiz.Questions.Coding[0].ID] = "55\n"

	res, err := f.students.Submit(ctx, st.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 9 {
		t.Fatalf("expected score 9, got %d", res.Score)
	}
	if res.MaxScore != 10 || res.MCQCorrect() != 4 {
		t.Fatalf("expected 10 max and 4 mcq correct, got %d and %d", res.MaxScore, res.MCQCorrect())
	}
	if res.AutoSubmitted {
		t.Fatalf("expected manual submission")
	}

	state, err := f.students.State(ctx, st.ID)
	if err != nil || state != domain.StateSubmitted {
		t.Fatalf("expected submitted state, got %q (%v)", state, err)
	}

	if _, err := f.students.Register(ctx, "Ava Again", "ava@example.com"); !errors.Is(err, domain.ErrDuplicateRegistration) {
		t.Fatalf("expected duplicate registration, got %v", err)
	}
	students, _ := f.store.FindStudents(ctx)
	if len(students) != 1 {
		t.Fatalf("expected no new student record, got %d", len(students))
	}
}

func TestRegisterRejectsEmailWithExistingResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	if _, err := f.store.InsertResult(ctx, domain.Result{StudentID: "legacy", StudentEmail: "ben@example.com"}); err != nil {
		t.Fatalf("seed result: %v", err)
	}
	if _, err := f.students.Register(ctx, "Ben", " Ben@Example.com "); !errors.Is(err, domain.ErrDuplicateRegistration) {
		t.Fatalf("expected duplicate registration, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	f := newFixture(t)
	f.seedQuiz(t)

	_, err := f.students.Register(context.Background(), "", "not-an-email")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Problems) != 2 {
		t.Fatalf("expected 2 problems, got %v", verr.Problems)
	}
}

func TestRegisterRequiresQuestions(t *testing.T) {
	f := newFixture(t)
	if _, err := f.students.Register(context.Background(), "Cy", "cy@example.com"); !errors.Is(err, domain.ErrQuizNotReady) {
		t.Fatalf("expected quiz not ready, got %v", err)
	}
}

func TestSubmitTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	st, quiz := mustStart(t, f, "Dee", "dee@example.com")
	if _, err := f.students.Submit(ctx, st.ID, correctAnswers(quiz)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.students.Submit(ctx, st.ID, correctAnswers(quiz)); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}
	if _, err := f.students.StartQuiz(ctx, st.ID); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected restart to be refused, got %v", err)
	}
	results, _ := f.store.FindResults(ctx)
	if len(results) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(results))
	}
}

func TestStartQuizResumesOpenSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	st, first := mustStart(t, f, "Eli", "eli@example.com")
	f.clock.Advance(5 * time.Minute)
	again, err := f.students.StartQuiz(ctx, st.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !again.Session.StartedAt.Equal(first.Session.StartedAt) {
		t.Fatalf("expected timer not to restart, got %v vs %v", again.Session.StartedAt, first.Session.StartedAt)
	}
	if len(again.Questions.All()) != 6 {
		t.Fatalf("expected 6 questions on resume, got %d", len(again.Questions.All()))
	}
}

func TestTickAutoSubmitsHeldAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	st, quiz := mustStart(t, f, "Fay", "fay@example.com")
	first := quiz.Questions.MCQ[0]
	if _, err := f.students.SaveAnswers(ctx, st.ID, map[string]string{first.ID: first.CorrectAnswer, "unknown": "x"}); err != nil {
		t.Fatalf("save answers: %v", err)
	}

	f.clock.Advance(10 * time.Minute)
	remaining, res, err := f.students.Tick(ctx, st.ID)
	if err != nil || res != nil {
		t.Fatalf("expected running timer, got res=%v err=%v", res, err)
	}
	if remaining != 1800 {
		t.Fatalf("expected 1800s left, got %d", remaining)
	}

	f.clock.Advance(30 * time.Minute)
	remaining, res, err = f.students.Tick(ctx, st.ID)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if remaining != 0 || res != nil {
		t.Fatalf("expected zero without a result inside the grace window, got remaining=%d res=%v", remaining, res)
	}

	f.clock.Advance(domain.SubmitGrace)
	remaining, res, err = f.students.Tick(ctx, st.ID)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if remaining != 0 || res == nil {
		t.Fatalf("expected auto-submit once the grace window closed, got remaining=%d res=%v", remaining, res)
	}
	if !res.AutoSubmitted || res.Score != 1 {
		t.Fatalf("expected auto-submitted score 1, got %+v", res)
	}
	if _, ok := res.Answers["unknown"]; ok {
		t.Fatalf("expected unknown question ids to be dropped")
	}

	// later ticks report the stored result
	_, again, err := f.students.Tick(ctx, st.ID)
	if err != nil || again == nil || again.ID != res.ID {
		t.Fatalf("expected stored result on later tick, got %v (%v)", again, err)
	}
}

func TestSubmitAfterZeroTickKeepsPostedAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	st, quiz := mustStart(t, f, "Fin", "fin@example.com")
	f.clock.Advance(40 * time.Minute)
	if remaining, res, err := f.students.Tick(ctx, st.ID); err != nil || remaining != 0 || res != nil {
		t.Fatalf("expected zero tick without submit, got remaining=%d res=%v err=%v", remaining, res, err)
	}
	if _, err := f.students.SaveAnswers(ctx, st.ID, map[string]string{quiz.Questions.MCQ[0].ID: "A"}); err != nil {
		t.Fatalf("expected saves inside the grace window, got %v", err)
	}
	if _, err := f.students.StartQuiz(ctx, st.ID); err != nil {
		t.Fatalf("expected open session inside the grace window, got %v", err)
	}
	if n, err := f.students.SubmitExpired(ctx); err != nil || n != 0 {
		t.Fatalf("expected sweeper to wait for the grace window, got %d (%v)", n, err)
	}

	f.clock.Advance(2 * time.Second)
	res, err := f.students.Submit(ctx, st.ID, correctAnswers(quiz))
	if err != nil {
		t.Fatalf("submit after zero tick: %v", err)
	}
	if res.Score != 10 || !res.AutoSubmitted {
		t.Fatalf("expected posted answers to be graded, got %+v", res)
	}
}

func TestSubmitAfterGraceUsesHeldAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	st, quiz := mustStart(t, f, "Gus", "gus@example.com")
	f.clock.Advance(40*time.Minute + time.Minute)
	res, err := f.students.Submit(ctx, st.ID, correctAnswers(quiz))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 0 || !res.AutoSubmitted {
		t.Fatalf("expected late answers to be ignored, got %+v", res)
	}
}

func TestSubmitWithinGraceKeepsPostedAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	st, quiz := mustStart(t, f, "Hal", "hal@example.com")
	f.clock.Advance(40*time.Minute + 5*time.Second)
	res, err := f.students.Submit(ctx, st.ID, correctAnswers(quiz))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 10 || !res.AutoSubmitted {
		t.Fatalf("expected full marks from the client-side final submit, got %+v", res)
	}
}

func TestSaveAnswersAfterDeadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	st, _ := mustStart(t, f, "Ida", "ida@example.com")
	f.clock.Advance(41 * time.Minute)
	if _, err := f.students.SaveAnswers(ctx, st.ID, map[string]string{}); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}
	if _, err := f.students.ResultFor(ctx, st.ID); err != nil {
		t.Fatalf("expected stored result: %v", err)
	}
}

func TestSubmitExpiredSweepsOnlyExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	early, _ := mustStart(t, f, "Jo", "jo@example.com")
	f.clock.Advance(20 * time.Minute)
	late, _ := mustStart(t, f, "Kim", "kim@example.com")
	f.clock.Advance(25 * time.Minute)

	n, err := f.students.SubmitExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 auto-submit, got %d", n)
	}
	if state, _ := f.students.State(ctx, early.ID); state != domain.StateSubmitted {
		t.Fatalf("expected early student submitted, got %q", state)
	}
	if state, _ := f.students.State(ctx, late.ID); state != domain.StateInProgress {
		t.Fatalf("expected late student in progress, got %q", state)
	}
}

func TestStateTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	if state, _ := f.students.State(ctx, "nobody"); state != domain.StateUnregistered {
		t.Fatalf("expected unregistered, got %q", state)
	}
	st, err := f.students.Register(ctx, "Lou", "lou@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if state, _ := f.students.State(ctx, st.ID); state != domain.StateRegistered {
		t.Fatalf("expected registered, got %q", state)
	}
	if _, err := f.students.StartQuiz(ctx, st.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if state, _ := f.students.State(ctx, st.ID); state != domain.StateInProgress {
		t.Fatalf("expected in progress, got %q", state)
	}
}

func TestRosterReportsEachStudentState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedQuiz(t)

	ava, err := f.students.Register(ctx, "Ava", "ava@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	f.clock.Advance(time.Second)
	ben, _ := mustStart(t, f, "Ben", "ben@example.com")
	f.clock.Advance(time.Second)
	cy, quiz := mustStart(t, f, "Cy", "cy@example.com")
	if _, err := f.students.Submit(ctx, cy.ID, correctAnswers(quiz)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	roster, err := f.students.Roster(ctx)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	want := []struct {
		id    string
		state domain.SessionState
	}{
		{ava.ID, domain.StateRegistered},
		{ben.ID, domain.StateInProgress},
		{cy.ID, domain.StateSubmitted},
	}
	if len(roster) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(roster))
	}
	for i, w := range want {
		if roster[i].Student.ID != w.id || roster[i].State != w.state {
			t.Fatalf("row %d: expected %s %q, got %s %q", i, w.id, w.state, roster[i].Student.ID, roster[i].State)
		}
	}
}

func TestStartQuizUnknownStudent(t *testing.T) {
	f := newFixture(t)
	f.seedQuiz(t)
	if _, err := f.students.StartQuiz(context.Background(), "ghost"); !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("expected student not found, got %v", err)
	}
}
