package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"contest-quiz-service/internal/app"
	"contest-quiz-service/internal/auth"
	"contest-quiz-service/internal/domain"
	"contest-quiz-service/internal/infra/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

type harness struct {
	url      string
	store    *memory.Store
	admin    *app.AdminService
	students *app.StudentService
	tokens   *auth.Issuer
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	sessions := memory.NewSessionStore(time.Hour).WithClock(clock.Now)
	settings := app.DefaultQuizSettings()
	sets := memory.NewQuestionSetCache(app.NewQuestionSelector(store, settings), time.Minute)

	admin, err := app.NewAdminService(app.AdminCredentials{Username: "admin", Password: "s3cret"}, store, sets, settings)
	if err != nil {
		t.Fatalf("admin service: %v", err)
	}
	admin.WithClock(clock.Now)
	students := app.NewStudentService(store, sessions, sets, settings).WithClock(clock.Now)
	tokens := auth.NewIssuer("test-secret").WithClock(clock.Now)

	srv, err := NewServer(admin, students, tokens, Options{TickInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &harness{
		url:      ts.URL,
		store:    store,
		admin:    admin,
		students: students,
		tokens:   tokens,
		clock:    clock,
	}
}

// seedQuiz adds five MCQs answered by "A<i>" and a coding question expecting "55".
func (h *harness) seedQuiz(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if _, err := h.admin.AddQuestion(ctx, app.QuestionInput{
			Type:          "mcq",
			Text:          fmt.Sprintf("Question %d", i),
			Options:       []string{fmt.Sprintf("A%d", i), "B", "C", "D"},
			CorrectAnswer: fmt.Sprintf("A%d", i),
		}); err != nil {
			t.Fatalf("add mcq %d: %v", i, err)
		}
		h.clock.Advance(time.Second)
	}
	if _, err := h.admin.AddQuestion(ctx, app.QuestionInput{
		Type:          "coding",
		Text:          "Print the sum of 1..10",
		CorrectAnswer: "55",
	}); err != nil {
		t.Fatalf("add coding: %v", err)
	}
	h.clock.Advance(time.Second)
}

func (h *harness) questions(t *testing.T, qType domain.QuestionType) []domain.Question {
	t.Helper()
	qs, err := h.store.FindQuestions(context.Background(), domain.QuestionFilter{Type: qType})
	if err != nil {
		t.Fatalf("find questions: %v", err)
	}
	return qs
}

// browser returns a client that keeps cookies and follows redirects.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func noRedirects(c *http.Client) *http.Client {
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return c
}

func postForm(t *testing.T, c *http.Client, target string, form url.Values) (int, string) {
	t.Helper()
	resp, err := c.PostForm(target, form)
	if err != nil {
		t.Fatalf("post %s: %v", target, err)
	}
	return readBody(t, resp)
}

func get(t *testing.T, c *http.Client, target string) (int, string) {
	t.Helper()
	resp, err := c.Get(target)
	if err != nil {
		t.Fatalf("get %s: %v", target, err)
	}
	return readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func (h *harness) loginAdmin(t *testing.T, c *http.Client) {
	t.Helper()
	status, body := postForm(t, c, h.url+"/admin/login", url.Values{"username": {"admin"}, "password": {"s3cret"}})
	if status != http.StatusOK || !strings.Contains(body, "Admin dashboard") {
		t.Fatalf("expected dashboard after login, got %d", status)
	}
}
