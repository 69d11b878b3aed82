// Package scheduler fires the archive runner on a cron cadence. It is the
// periodic half of the trigger surface; the administrative one-shot command
// calls the same Run entry point.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/yungbote/aura-archiver/internal/archive"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

// cronParser parses standard 5-field cron expressions (minute, hour, dom,
// month, dow).
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

type Config struct {
	Runner     *archive.Runner
	Log        *logger.Logger
	CronExpr   string // defaults to nightly at 03:00
	BatchSize  int
	RunTimeout time.Duration // deadline for one whole run; defaults to 30m
}

type Scheduler struct {
	runner     *archive.Runner
	log        *logger.Logger
	schedule   cronlib.Schedule
	expr       string
	batchSize  int
	runTimeout time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) (*Scheduler, error) {
	expr := cfg.CronExpr
	if expr == "" {
		expr = "0 3 * * *"
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 30 * time.Minute
	}
	return &Scheduler{
		runner:     cfg.Runner,
		log:        cfg.Log.With("component", "ArchiveScheduler"),
		schedule:   schedule,
		expr:       expr,
		batchSize:  batchSize,
		runTimeout: runTimeout,
	}, nil
}

// NextRun reports when the schedule fires next after t.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
	s.log.Info("archive scheduler started", "cron", s.expr, "batch_size", s.batchSize)
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("archive scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	// The deadline propagates into every query and object-store call, so a
	// hung statement cannot stall the loop past one run window.
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	now := time.Now().UTC()
	summary, err := s.runner.Run(ctx, s.batchSize, now)
	if err != nil {
		s.log.Error("scheduled archive run failed", "error", err)
		return
	}
	s.log.Info("scheduled archive run finished",
		"scanned", summary.Scanned,
		"migrated", summary.Migrated,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
}
