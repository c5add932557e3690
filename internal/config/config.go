package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"contest-quiz-service/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Store struct {
		Backend string `yaml:"backend"`
	} `yaml:"store"`
	Mongo struct {
		URI      string `yaml:"-"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Duration    string `yaml:"duration"`
		MCQCount    int    `yaml:"mcq_count"`
		CodingCount int    `yaml:"coding_count"`
		CacheTTL    string `yaml:"cache_ttl"`
		SweepEvery  string `yaml:"sweep_every"`
	} `yaml:"quiz"`
	Admin struct {
		Username string `yaml:"-"`
		Password string `yaml:"-"`
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"admin"`
	SecretKey string `yaml:"-"`
}

// Load reads the optional YAML file at path, then applies .env and process
// environment overrides. It does not validate; call Validate before use.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, err
		}
	}

	// .env is optional; the real environment still applies without it.
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Mongo.URI, "MONGODB_URI")
	setFromEnv(&cfg.Mongo.Database, "DB_NAME")
	setFromEnv(&cfg.Admin.Username, "ADMIN_USERNAME")
	setFromEnv(&cfg.Admin.Password, "ADMIN_PASSWORD")
	setFromEnv(&cfg.SecretKey, "SECRET_KEY")
	setFromEnv(&cfg.Server.Port, "PORT")
	setFromEnv(&cfg.Store.Backend, "STORE_BACKEND")
	setFromEnv(&cfg.Postgres.URL, "POSTGRES_URL")
	setFromEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&cfg.Redis.Password, "REDIS_PASSWORD")
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if db, err := strconv.Atoi(raw); err == nil {
			cfg.Redis.DB = db
		}
	}
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendMongo
	}
	if cfg.Quiz.MCQCount <= 0 {
		cfg.Quiz.MCQCount = 5
	}
	if cfg.Quiz.CodingCount <= 0 {
		cfg.Quiz.CodingCount = 1
	}
	if cfg.Quiz.SweepEvery == "" {
		cfg.Quiz.SweepEvery = "@every 30s"
	}
}

// Validate reports every missing required setting in one error wrapping
// domain.ErrConfiguration.
func (c Config) Validate() error {
	var missing []string
	switch c.Store.Backend {
	case BackendMongo:
		if c.Mongo.URI == "" {
			missing = append(missing, "MONGODB_URI")
		}
		if c.Mongo.Database == "" {
			missing = append(missing, "DB_NAME")
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			missing = append(missing, "POSTGRES_URL")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store backend %q", domain.ErrConfiguration, c.Store.Backend)
	}
	if c.Admin.Username == "" {
		missing = append(missing, "ADMIN_USERNAME")
	}
	if c.Admin.Password == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if c.SecretKey == "" {
		missing = append(missing, "SECRET_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// QuizDuration is the countdown length, 40 minutes unless configured.
func (c Config) QuizDuration() time.Duration {
	return TTLDuration(c.Quiz.Duration, 40*time.Minute)
}

// SessionTTL keeps sessions alive past the deadline long enough for the sweeper.
// A configured value shorter than the quiz plus its grace window is raised to
// that floor, otherwise sessions would vanish before they could be graded.
func (c Config) SessionTTL() time.Duration {
	floor := c.QuizDuration() + domain.SubmitGrace + time.Minute
	ttl := TTLDuration(c.Redis.TTL, c.QuizDuration()+10*time.Minute)
	if ttl < floor {
		return floor
	}
	return ttl
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
