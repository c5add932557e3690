package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiredSubmitter auto-submits every session past its deadline.
type ExpiredSubmitter interface {
	SubmitExpired(ctx context.Context) (int, error)
}

// Sweeper periodically auto-submits sessions whose students closed the page
// before the timer ran out.
type Sweeper struct {
	cron     *cron.Cron
	students ExpiredSubmitter
	timeout  time.Duration
}

// NewSweeper schedules the sweep with a cron expression, e.g. "@every 30s".
func NewSweeper(students ExpiredSubmitter, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		students: students,
		timeout:  30 * time.Second,
	}
	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, err
	}
	return s, nil
}

// Run performs one sweep.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.students.SubmitExpired(ctx)
	if err != nil {
		log.Printf("sweep expired sessions: %v", err)
		return
	}
	if n > 0 {
		log.Printf("auto-submitted %d expired quiz session(s)", n)
	}
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
