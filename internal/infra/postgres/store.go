package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contest-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// Store is the relational Persistence Layer. Options, answers and attempts
// are kept as JSONB so each row mirrors the document shape.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and pings it; failures are domain.ErrConnection.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	store := NewStore(pool)
	if err := store.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func (s *Store) InsertQuestion(ctx context.Context, q domain.Question) (string, error) {
	q.ID = uuid.NewString()
	options, err := json.Marshal(nonNil(q.Options))
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO questions (id, type, text, options, correct_answer, explanation, sample_input, sample_output, marks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		q.ID, string(q.Type), q.Text, options, q.CorrectAnswer, q.Explanation, q.SampleInput, q.SampleOutput, q.Marks, q.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert question: %w", err)
	}
	return q.ID, nil
}

func (s *Store) FindQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	query := `SELECT id, type, text, options, correct_answer, explanation, sample_input, sample_output, marks, created_at
		FROM questions
		WHERE ($1 = '' OR type = $1) AND (cardinality($2::text[]) = 0 OR id = ANY($2))
		ORDER BY created_at, id`
	args := []any{string(filter.Type), nonNil(filter.IDs)}
	if filter.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, filter.Limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q       domain.Question
			qType   string
			options []byte
		)
		if err := rows.Scan(&q.ID, &qType, &q.Text, &options, &q.CorrectAnswer, &q.Explanation, &q.SampleInput, &q.SampleOutput, &q.Marks, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(qType)
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		if len(q.Options) == 0 {
			q.Options = nil
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) InsertStudent(ctx context.Context, st domain.Student) (string, error) {
	st.ID = uuid.NewString()
	_, err := s.pool.Exec(ctx, `INSERT INTO students (id, name, email, registered_at) VALUES ($1, $2, $3, $4)`,
		st.ID, st.Name, st.Email, st.RegisteredAt)
	if isUniqueViolation(err) {
		return "", domain.ErrDuplicateRegistration
	}
	if err != nil {
		return "", fmt.Errorf("insert student: %w", err)
	}
	return st.ID, nil
}

func (s *Store) FindStudent(ctx context.Context, id string) (domain.Student, error) {
	return s.findStudent(ctx, `WHERE id = $1`, id)
}

func (s *Store) FindStudentByEmail(ctx context.Context, email string) (domain.Student, error) {
	return s.findStudent(ctx, `WHERE email = $1`, email)
}

func (s *Store) findStudent(ctx context.Context, where string, arg any) (domain.Student, error) {
	var st domain.Student
	err := s.pool.QueryRow(ctx, `SELECT id, name, email, registered_at FROM students `+where, arg).
		Scan(&st.ID, &st.Name, &st.Email, &st.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Student{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Student{}, fmt.Errorf("find student: %w", err)
	}
	return st, nil
}

func (s *Store) FindStudents(ctx context.Context) ([]domain.Student, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email, registered_at FROM students ORDER BY registered_at, id`)
	if err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	defer rows.Close()

	students := make([]domain.Student, 0)
	for rows.Next() {
		var st domain.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Email, &st.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

func (s *Store) InsertResult(ctx context.Context, r domain.Result) (string, error) {
	r.ID = uuid.NewString()
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	attempts, err := json.Marshal(r.Attempts)
	if err != nil {
		return "", fmt.Errorf("marshal attempts: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO results (id, student_id, student_email, answers, attempts, score, max_score, started_at, submitted_at, auto_submitted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.StudentID, r.StudentEmail, answers, attempts, r.Score, r.MaxScore, r.StartedAt, r.SubmittedAt, r.AutoSubmitted)
	if isUniqueViolation(err) {
		return "", domain.ErrAlreadySubmitted
	}
	if err != nil {
		return "", fmt.Errorf("insert result: %w", err)
	}
	return r.ID, nil
}

const resultColumns = `id, student_id, student_email, answers, attempts, score, max_score, started_at, submitted_at, auto_submitted`

func (s *Store) FindResultByStudent(ctx context.Context, studentID string) (domain.Result, error) {
	return s.findResult(ctx, `WHERE student_id = $1`, studentID)
}

func (s *Store) FindResultByEmail(ctx context.Context, email string) (domain.Result, error) {
	return s.findResult(ctx, `WHERE student_email = $1 LIMIT 1`, email)
}

func (s *Store) findResult(ctx context.Context, where string, arg any) (domain.Result, error) {
	r, err := scanResult(s.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM results `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrNotFound
	}
	return r, err
}

func (s *Store) FindResults(ctx context.Context) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+resultColumns+` FROM results ORDER BY submitted_at, id`)
	if err != nil {
		return nil, fmt.Errorf("find results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Result, 0)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResult(row pgx.Row) (domain.Result, error) {
	var (
		r                 domain.Result
		answers, attempts []byte
	)
	if err := row.Scan(&r.ID, &r.StudentID, &r.StudentEmail, &answers, &attempts, &r.Score, &r.MaxScore, &r.StartedAt, &r.SubmittedAt, &r.AutoSubmitted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Result{}, err
		}
		return domain.Result{}, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal(answers, &r.Answers); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	if err := json.Unmarshal(attempts, &r.Attempts); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal attempts: %w", err)
	}
	return r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
