package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"contest-quiz-service/internal/app"
	"contest-quiz-service/internal/config"
	"contest-quiz-service/internal/domain"
	"contest-quiz-service/internal/infra/memory"
	mongostore "contest-quiz-service/internal/infra/mongo"
	"contest-quiz-service/internal/infra/postgres"
	infraredis "contest-quiz-service/internal/infra/redis"
	"github.com/redis/go-redis/v9"
)

// stack is everything the services need, built from one Config.
type stack struct {
	store    app.Store
	sessions app.SessionRepository
	sets     app.QuestionSetSource
	redis    *redis.Client
	settings app.QuizSettings
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openStack(ctx context.Context, cfg config.Config) (*stack, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &stack{
		store: store,
		settings: app.QuizSettings{
			Duration:    cfg.QuizDuration(),
			MCQCount:    cfg.Quiz.MCQCount,
			CodingCount: cfg.Quiz.CodingCount,
		},
	}

	selector := app.NewQuestionSelector(store, s.settings)
	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, time.Minute)
	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("%w: redis: %v", domain.ErrConnection, err)
		}
		s.sessions = infraredis.NewSessionStore(s.redis, cfg.SessionTTL())
		s.sets = infraredis.NewQuestionSetCache(s.redis, selector, cacheTTL)
		log.Printf("sessions in redis at %s", cfg.Redis.Addr)
	} else {
		s.sessions = memory.NewSessionStore(cfg.SessionTTL())
		s.sets = memory.NewQuestionSetCache(selector, cacheTTL)
	}
	return s, nil
}

func openStore(ctx context.Context, cfg config.Config) (app.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		store, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		log.Printf("connected to mongo database %q", cfg.Mongo.Database)
		return store, nil
	case config.BackendPostgres:
		if err := postgres.Migrate(ctx, cfg.Postgres.URL); err != nil {
			return nil, fmt.Errorf("%w: migrate: %v", domain.ErrConnection, err)
		}
		store, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		log.Printf("connected to postgres")
		return store, nil
	case config.BackendMemory:
		log.Printf("using in-memory store; data is lost on exit")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrConfiguration, cfg.Store.Backend)
	}
}

func (s *stack) Close(ctx context.Context) {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("close redis: %v", err)
		}
	}
	if err := s.store.Close(ctx); err != nil {
		log.Printf("close store: %v", err)
	}
}
