package indexer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
)

// Scheduler periodically re-checks document freshness on a cron schedule.
type Scheduler struct {
	Indexer *Indexer
	expr    *cronexpr.Expression
	logger  *log.Logger
	now     func() time.Time
}

// NewScheduler parses spec (5-field cron or @hourly/@daily style macros).
func NewScheduler(ix *Indexer, spec string, logger *log.Logger) (*Scheduler, error) {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse reindex schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[SCHEDULER] ", log.LstdFlags)
	}
	return &Scheduler{Indexer: ix, expr: expr, logger: logger, now: time.Now}, nil
}

// Next returns the next firing time after t.
func (s *Scheduler) Next(t time.Time) time.Time { return s.expr.Next(t) }

// Run blocks until ctx is cancelled, calling EnsureFresh at every firing.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.expr.Next(s.now())
		if next.IsZero() {
			s.logger.Printf("schedule has no future occurrence, stopping")
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	if err := s.Indexer.EnsureFresh(ctx); err != nil {
		s.logger.Printf("freshness check failed: %v", err)
		return
	}
	s.logger.Printf("freshness check done in %s", time.Since(start).Round(time.Millisecond))
}
