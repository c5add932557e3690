package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"contest-quiz-service/internal/domain"
)

func setMemoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("PORT", "")
}

func TestPingMemoryStore(t *testing.T) {
	setMemoryEnv(t)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"ping", "--config", t.TempDir() + "/missing.yaml"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !strings.Contains(out.String(), "memory store: ok") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestStartupFailsWithoutRequiredConfig(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("SECRET_KEY", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", t.TempDir() + "/missing.yaml"})
	err := cmd.Execute()
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "SECRET_KEY") {
		t.Fatalf("expected missing key to be named, got %v", err)
	}
}
