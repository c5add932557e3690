package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"contest-quiz-service/internal/domain"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStoreAgainstMongo(t *testing.T) {
	ctx := context.Background()
	uri, cleanup := startMongo(t, ctx)
	defer cleanup()

	store, err := Connect(ctx, uri, "contest_test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer store.Close(ctx)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.InsertQuestion(ctx, domain.Question{
			Type:          domain.QuestionMCQ,
			Text:          fmt.Sprintf("q%d", i),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: "a",
			Marks:         1,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("insert question: %v", err)
		}
		ids = append(ids, id)
	}
	first, err := store.FindQuestions(ctx, domain.QuestionFilter{Type: domain.QuestionMCQ, Limit: 2})
	if err != nil {
		t.Fatalf("find questions: %v", err)
	}
	if len(first) != 2 || first[0].ID != ids[0] || first[1].ID != ids[1] {
		t.Fatalf("expected first two by creation, got %+v", first)
	}

	studentID, err := store.InsertStudent(ctx, domain.Student{Name: "Ava", Email: "ava@example.com", RegisteredAt: base})
	if err != nil {
		t.Fatalf("insert student: %v", err)
	}
	if _, err := store.InsertStudent(ctx, domain.Student{Name: "Ava", Email: "ava@example.com"}); !errors.Is(err, domain.ErrDuplicateRegistration) {
		t.Fatalf("expected unique email, got %v", err)
	}
	if st, err := store.FindStudentByEmail(ctx, "ava@example.com"); err != nil || st.ID != studentID {
		t.Fatalf("find by email: %+v %v", st, err)
	}
	if _, err := store.FindStudent(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	res := domain.Result{StudentID: studentID, StudentEmail: "ava@example.com", Answers: map[string]string{ids[0]: "a"}, Score: 1, SubmittedAt: base}
	if _, err := store.InsertResult(ctx, res); err != nil {
		t.Fatalf("insert result: %v", err)
	}
	if _, err := store.InsertResult(ctx, res); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected one result per student, got %v", err)
	}
	got, err := store.FindResultByEmail(ctx, "ava@example.com")
	if err != nil || got.Answers[ids[0]] != "a" {
		t.Fatalf("find result by email: %+v %v", got, err)
	}

	names, err := store.Collections(ctx)
	if err != nil || len(names) < 3 {
		t.Fatalf("expected 3 collections, got %v (%v)", names, err)
	}
}

func startMongo(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
	req := tc.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start mongo: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "27017/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("mongodb://%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}
