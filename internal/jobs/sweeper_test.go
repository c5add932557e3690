package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSubmitter struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSubmitter) SubmitExpired(context.Context) (int, error) {
	f.calls.Add(1)
	return 1, f.err
}

func TestSweeperRunCallsSubmitter(t *testing.T) {
	fake := &fakeSubmitter{}
	sweeper, err := NewSweeper(fake, "@every 1h")
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	sweeper.Run()
	fake.err = errors.New("boom")
	sweeper.Run()
	if got := fake.calls.Load(); got != 2 {
		t.Fatalf("expected 2 sweeps, got %d", got)
	}
}

func TestSweeperSchedules(t *testing.T) {
	fake := &fakeSubmitter{}
	sweeper, err := NewSweeper(fake, "@every 1s")
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for fake.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if fake.calls.Load() == 0 {
		t.Fatalf("expected scheduled sweep within 5s")
	}
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	if _, err := NewSweeper(&fakeSubmitter{}, "not a schedule"); err == nil {
		t.Fatalf("expected bad schedule to fail")
	}
}
