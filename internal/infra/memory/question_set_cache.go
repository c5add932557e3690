package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"contest-quiz-service/internal/app"
	"contest-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

const questionSetKey = "question-set"

// QuestionSetCache caches the question set with TTL to avoid repeated DB hits.
type QuestionSetCache struct {
	loader app.QuestionSetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	set       domain.QuestionSet
	expiresAt time.Time
	loaded    bool
	gen       uint64
}

func NewQuestionSetCache(loader app.QuestionSetLoader, ttl time.Duration) *QuestionSetCache {
	return &QuestionSetCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionSetCache) QuestionSet(ctx context.Context) (domain.QuestionSet, error) {
	if set, ok := c.cached(c.clock()); ok {
		return set, nil
	}

	result, err, _ := c.sf.Do(questionSetKey, func() (interface{}, error) {
		now := c.clock()
		if set, ok := c.cached(now); ok {
			return set, nil
		}

		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		set, err := c.loader.LoadQuestionSet(ctx)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		c.mu.Lock()
		// an Invalidate during the load means set may already be stale
		if c.gen == gen {
			c.set = set
			c.loaded = true
			c.expiresAt = now.Add(c.ttlWithJitter())
		}
		c.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate forces the next QuestionSet call to reload.
func (c *QuestionSetCache) Invalidate(context.Context) {
	c.mu.Lock()
	c.loaded = false
	c.gen++
	c.mu.Unlock()
}

func (c *QuestionSetCache) cached(now time.Time) (domain.QuestionSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loaded && c.expiresAt.After(now) {
		return c.set, true
	}
	return domain.QuestionSet{}, false
}

func (c *QuestionSetCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
