package memory

import (
	"context"
	"sort"
	"sync"

	"contest-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of app.Store. It enforces the same
// uniqueness rules as the database indexes: one student per email and one
// result per student.
type Store struct {
	mu        sync.RWMutex
	questions []domain.Question
	students  map[string]domain.Student
	emails    map[string]string
	results   []domain.Result
	byStudent map[string]int
}

func NewStore() *Store {
	return &Store{
		students:  make(map[string]domain.Student),
		emails:    make(map[string]string),
		byStudent: make(map[string]int),
	}
}

func (s *Store) InsertQuestion(_ context.Context, q domain.Question) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.Options = append([]string(nil), q.Options...)
	s.questions = append(s.questions, q)
	return q.ID, nil
}

func (s *Store) FindQuestions(_ context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids map[string]struct{}
	if len(filter.IDs) > 0 {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if filter.Type != "" && q.Type != filter.Type {
			continue
		}
		if ids != nil {
			if _, ok := ids[q.ID]; !ok {
				continue
			}
		}
		out = append(out, q)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) InsertStudent(_ context.Context, st domain.Student) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[st.Email]; taken {
		return "", domain.ErrDuplicateRegistration
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	s.students[st.ID] = st
	s.emails[st.Email] = st.ID
	return st.ID, nil
}

func (s *Store) FindStudent(_ context.Context, id string) (domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return domain.Student{}, domain.ErrNotFound
	}
	return st, nil
}

func (s *Store) FindStudentByEmail(_ context.Context, email string) (domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return domain.Student{}, domain.ErrNotFound
	}
	return s.students[id], nil
}

func (s *Store) FindStudents(_ context.Context) ([]domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertResult(_ context.Context, r domain.Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byStudent[r.StudentID]; taken {
		return "", domain.ErrAlreadySubmitted
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.byStudent[r.StudentID] = len(s.results)
	s.results = append(s.results, r)
	return r.ID, nil
}

func (s *Store) FindResultByStudent(_ context.Context, studentID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byStudent[studentID]
	if !ok {
		return domain.Result{}, domain.ErrNotFound
	}
	return s.results[idx], nil
}

func (s *Store) FindResultByEmail(_ context.Context, email string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.StudentEmail == email {
			return r, nil
		}
	}
	return domain.Result{}, domain.ErrNotFound
}

func (s *Store) FindResults(_ context.Context) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]domain.Result(nil), s.results...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }
