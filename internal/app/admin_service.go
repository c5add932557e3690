package app

import (
	"context"
	"crypto/subtle"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"contest-quiz-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials are the configured admin username and password.
type AdminCredentials struct {
	Username string
	Password string
}

// AdminService covers the admin use cases: login, question bank, results.
type AdminService struct {
	username     string
	passwordHash []byte
	questions    QuestionRepository
	students     StudentRepository
	results      ResultRepository
	sets         QuestionSetSource
	settings     QuizSettings
	now          func() time.Time
}

func NewAdminService(creds AdminCredentials, store Store, sets QuestionSetSource, settings QuizSettings) (*AdminService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &AdminService{
		username:     creds.Username,
		passwordHash: hash,
		questions:    store,
		students:     store,
		results:      store,
		sets:         sets,
		settings:     settings,
		now:          time.Now,
	}, nil
}

// WithClock is test-only for deterministic timestamps.
func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}

// Login checks the configured credentials.
func (s *AdminService) Login(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	return userOK && passOK
}

// AddQuestion validates and stores a question, then drops the cached set so
// new students see it.
func (s *AdminService) AddQuestion(ctx context.Context, in QuestionInput) (string, error) {
	in = in.normalized()
	if err := validate.Struct(in); err != nil {
		return "", toValidationError(err)
	}

	qType := domain.QuestionType(in.Type)
	q := domain.Question{
		Type:          qType,
		Text:          in.Text,
		CorrectAnswer: in.CorrectAnswer,
		Explanation:   in.Explanation,
		Marks:         domain.MarksFor(qType),
		CreatedAt:     s.now().UTC(),
	}
	switch qType {
	case domain.QuestionMCQ:
		q.Options = in.Options
	case domain.QuestionCoding:
		q.SampleInput = in.SampleInput
		q.SampleOutput = in.SampleOutput
	}

	id, err := s.questions.InsertQuestion(ctx, q)
	if err != nil {
		return "", err
	}
	s.sets.Invalidate(ctx)
	return id, nil
}

// ListQuestions returns the whole bank in creation order.
func (s *AdminService) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	return s.questions.FindQuestions(ctx, domain.QuestionFilter{})
}

// Stats counts questions per type and reports whether a full set exists.
func (s *AdminService) Stats(ctx context.Context) (domain.QuestionStats, error) {
	mcq, err := s.questions.FindQuestions(ctx, domain.QuestionFilter{Type: domain.QuestionMCQ})
	if err != nil {
		return domain.QuestionStats{}, err
	}
	coding, err := s.questions.FindQuestions(ctx, domain.QuestionFilter{Type: domain.QuestionCoding})
	if err != nil {
		return domain.QuestionStats{}, err
	}
	return domain.QuestionStats{
		MCQ:    len(mcq),
		Coding: len(coding),
		Ready:  len(mcq) >= s.settings.MCQCount && len(coding) >= s.settings.CodingCount,
	}, nil
}

// ListResults joins every result with its student, oldest submission first.
func (s *AdminService) ListResults(ctx context.Context) ([]domain.ResultView, error) {
	results, err := s.results.FindResults(ctx)
	if err != nil {
		return nil, err
	}
	students, err := s.students.FindStudents(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}

	views := make([]domain.ResultView, 0, len(results))
	for _, r := range results {
		view := domain.ResultView{Result: r}
		if st, ok := byID[r.StudentID]; ok {
			view.StudentName = st.Name
			if view.StudentEmail == "" {
				view.StudentEmail = st.Email
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// ExportResultsCSV writes ListResults as CSV.
func (s *AdminService) ExportResultsCSV(ctx context.Context, w io.Writer) error {
	views, err := s.ListResults(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Email", "Score", "Max Score", "MCQ Correct", "Submitted At", "Duration (min)", "Auto Submitted"}); err != nil {
		return err
	}
	for _, v := range views {
		row := []string{
			v.StudentName,
			v.StudentEmail,
			strconv.Itoa(v.Score),
			strconv.Itoa(v.MaxScore),
			strconv.Itoa(v.MCQCorrect()),
			v.SubmittedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(int(v.Duration() / time.Minute)),
			strconv.FormatBool(v.AutoSubmitted),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
