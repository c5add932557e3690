package memory

import (
	"context"
	"sync"
	"time"

	"contest-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Entries older than ttl are treated as gone.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]storedSession
}

type storedSession struct {
	session   domain.Session
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]storedSession),
	}
}

// WithClock is test-only for deterministic expiry.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.clock = now
	return s
}

func (s *SessionStore) Save(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := storedSession{session: copySession(session)}
	if s.ttl > 0 {
		entry.expiresAt = s.clock().Add(s.ttl)
	}
	s.sessions[session.StudentID] = entry
	return nil
}

func (s *SessionStore) Get(_ context.Context, studentID string) (domain.Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[studentID]
	s.mu.RUnlock()
	if !ok || s.expired(entry) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return copySession(entry.session), nil
}

func (s *SessionStore) Delete(_ context.Context, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, studentID)
	return nil
}

func (s *SessionStore) List(_ context.Context) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Session, 0, len(s.sessions))
	for id, entry := range s.sessions {
		if s.expired(entry) {
			delete(s.sessions, id)
			continue
		}
		out = append(out, copySession(entry.session))
	}
	return out, nil
}

func (s *SessionStore) expired(entry storedSession) bool {
	return !entry.expiresAt.IsZero() && !s.clock().Before(entry.expiresAt)
}

func copySession(in domain.Session) domain.Session {
	out := in
	out.QuestionIDs = append([]string(nil), in.QuestionIDs...)
	out.Answers = make(map[string]string, len(in.Answers))
	for k, v := range in.Answers {
		out.Answers[k] = v
	}
	return out
}
