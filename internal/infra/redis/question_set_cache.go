package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"time"

	"contest-quiz-service/internal/app"
	"contest-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	questionSetKey    = "contest:question-set"
	questionSetGenKey = "contest:question-set:gen"
)

// QuestionSetCache keeps the served question set in Redis (one JSON value
// shared by every instance) and falls back to a loader on cache miss.
// Invalidate bumps a generation counter; a load only writes back if the
// generation it started from is still current. A non-positive ttl disables
// caching.
type QuestionSetCache struct {
	client *redis.Client
	loader app.QuestionSetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionSetCache(client *redis.Client, loader app.QuestionSetLoader, ttl time.Duration) *QuestionSetCache {
	return &QuestionSetCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionSetCache) QuestionSet(ctx context.Context) (domain.QuestionSet, error) {
	if c.ttl <= 0 {
		return c.loader.LoadQuestionSet(ctx)
	}
	if set, ok := c.cached(ctx); ok {
		return set, nil
	}

	result, err, _ := c.sf.Do(questionSetKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := c.cached(ctx); ok {
			return set, nil
		}

		gen, err := c.generation(ctx)
		if err != nil {
			log.Printf("read question set generation: %v", err)
		}
		set, err := c.loader.LoadQuestionSet(ctx)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		if gen >= 0 {
			c.store(ctx, set, gen)
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate drops the shared cache entry and fences off loads in flight.
func (c *QuestionSetCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, questionSetGenKey)
		pipe.Del(ctx, questionSetKey)
		return nil
	})
	if err != nil {
		log.Printf("invalidate question set: %v", err)
	}
}

// generation returns the current counter, 0 when unset, or -1 on error.
func (c *QuestionSetCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, questionSetGenKey).Int64()
	switch {
	case err == redis.Nil:
		return 0, nil
	case err != nil:
		return -1, err
	}
	return gen, nil
}

// store writes set only while the generation still equals gen.
func (c *QuestionSetCache) store(ctx context.Context, set domain.QuestionSet, gen int64) {
	data, err := json.Marshal(set)
	if err != nil {
		return
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, questionSetGenKey).Int64()
		if err == redis.Nil {
			current, err = 0, nil
		}
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, questionSetKey, data, c.ttlWithJitter())
			return nil
		})
		return err
	}, questionSetGenKey)
	if err != nil && err != redis.TxFailedErr {
		log.Printf("cache question set: %v", err)
	}
}

func (c *QuestionSetCache) cached(ctx context.Context) (domain.QuestionSet, bool) {
	data, err := c.client.Get(ctx, questionSetKey).Bytes()
	if err != nil {
		return domain.QuestionSet{}, false
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (c *QuestionSetCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
