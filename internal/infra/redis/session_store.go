package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contest-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "contest:session:"

// SessionStore keeps quiz sessions in Redis as JSON with a TTL, so an
// abandoned session disappears on its own once the sweeper has had its chance.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.StudentID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, studentID string) (domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(studentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, studentID string) error {
	return s.client.Del(ctx, s.key(studentID)).Err()
}

// List scans every live session. Keys that vanish mid-scan are skipped.
func (s *SessionStore) List(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	iter := s.client.Scan(ctx, 0, sessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		var session domain.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionStore) key(studentID string) string {
	return sessionPrefix + studentID
}
