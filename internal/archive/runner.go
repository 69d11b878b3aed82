package archive

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/aura-archiver/internal/data/repos"
	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

// Summary is the per-run outcome tally returned to whoever triggered the
// run (scheduler or administrative command).
type Summary struct {
	Scanned  int `json:"scanned"`
	Migrated int `json:"migrated"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

type outcome int

const (
	outcomeMigrated outcome = iota
	outcomeFailed
	outcomeSkipped
)

// Runner scans for sessions whose age has outgrown their tier and walks
// each one a single tier forward under a per-session lease. Concurrent
// runs contend only on the lease row; a lost claim is a skip, not an
// error.
type Runner struct {
	log         *logger.Logger
	sessions    repos.SessionRepo
	executor    *Executor
	thresholds  Thresholds
	leaseTTL    time.Duration
	concurrency int
	owner       string
	tracer      trace.Tracer
}

func NewRunner(
	baseLog *logger.Logger,
	sessionRepo repos.SessionRepo,
	executor *Executor,
	thresholds Thresholds,
	leaseTTL time.Duration,
	concurrency int,
) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if leaseTTL <= 0 {
		// Must outlast the slowest single-session migration so a crashed
		// worker cannot strand a session beyond one recovery window.
		leaseTTL = 15 * time.Minute
	}
	return &Runner{
		log:         baseLog.With("component", "ArchiveRunner"),
		sessions:    sessionRepo,
		executor:    executor,
		thresholds:  thresholds,
		leaseTTL:    leaseTTL,
		concurrency: concurrency,
		owner:       runnerIdentity(),
		tracer:      otel.Tracer("github.com/yungbote/aura-archiver/internal/archive"),
	}
}

func runnerIdentity() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "archiver"
	}
	return host + "-" + strings.Split(uuid.NewString(), "-")[0]
}

// Run scans up to batchSize candidates and migrates each one tier step
// through a bounded worker pool. It returns an error only when the
// candidate scan itself fails; per-session failures are isolated into the
// Summary. Cancelling ctx stops new candidates from being picked up while
// in-flight migrations finish their current step.
func (r *Runner) Run(ctx context.Context, batchSize int, now time.Time) (Summary, error) {
	ctx, span := r.tracer.Start(ctx, "archive.run", trace.WithAttributes(
		attribute.Int("batch_size", batchSize),
	))
	defer span.End()

	coldCutoff := now.Add(-r.thresholds.ColdAfter)
	deepCutoff := now.Add(-r.thresholds.DeepAfter)
	deleteCutoff := now.Add(-r.thresholds.DeleteAfter)

	candidates, err := r.sessions.ListNeedingMigration(dbctx.Background(ctx), coldCutoff, deepCutoff, deleteCutoff, batchSize)
	if err != nil {
		span.RecordError(err)
		return Summary{}, fmt.Errorf("scan migration candidates: %w", err)
	}

	summary := Summary{Scanned: len(candidates)}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i, candidate := range candidates {
		if ctx.Err() != nil {
			// Candidates never picked up still count toward the tally, so
			// Scanned always equals Migrated + Failed + Skipped.
			mu.Lock()
			summary.Skipped += len(candidates) - i
			mu.Unlock()
			break
		}
		sess := candidate
		g.Go(func() error {
			result := r.migrateOne(ctx, sess, now)
			mu.Lock()
			switch result {
			case outcomeMigrated:
				summary.Migrated++
			case outcomeFailed:
				summary.Failed++
			case outcomeSkipped:
				summary.Skipped++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("scanned", summary.Scanned),
		attribute.Int("migrated", summary.Migrated),
		attribute.Int("failed", summary.Failed),
		attribute.Int("skipped", summary.Skipped),
	)
	r.log.Info("archive run finished",
		"scanned", summary.Scanned,
		"migrated", summary.Migrated,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// migrateOne carries one session through a single tier step: lease claim,
// re-classify under the lease, execute, release. The lease release uses a
// cancellation-proof context so a shutdown mid-step cannot strand the row
// until TTL expiry.
func (r *Runner) migrateOne(ctx context.Context, sess *types.Session, now time.Time) outcome {
	log := r.log.With("session_id", sess.ID)
	dbc := dbctx.Background(ctx)

	claimed, err := r.sessions.ClaimLease(dbc, sess.ID, r.owner, r.leaseTTL, now)
	if err != nil {
		log.Warn("lease claim failed", "error", err)
		return outcomeFailed
	}
	if !claimed {
		// Another worker owns it; their run will report the outcome.
		return outcomeSkipped
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := r.sessions.ReleaseLease(dbctx.Background(releaseCtx), sess.ID, r.owner); err != nil {
			log.Warn("lease release failed, expires by TTL", "error", err)
		}
	}()

	// Re-read under the lease: the scan snapshot may be stale by the time
	// the claim lands.
	fresh, err := r.sessions.GetByID(dbc, sess.ID)
	if err != nil {
		log.Warn("session reload failed", "error", err)
		return outcomeFailed
	}
	if fresh == nil {
		return outcomeSkipped
	}

	target := r.thresholds.Classify(now, fresh.UpdatedAt, fresh.Tier)
	if target == fresh.Tier {
		return outcomeSkipped
	}

	// One step per run even when the target is further away; a session
	// aging straight from hot to deep eligibility still passes through
	// cold.
	step := fresh.Tier.Next()
	if err := r.executor.ExecuteTransition(ctx, fresh, fresh.Tier, step); err != nil {
		log.Error("migration step failed",
			"from_tier", fresh.Tier,
			"to_tier", step,
			"target_tier", target,
			"error", err,
		)
		return outcomeFailed
	}
	return outcomeMigrated
}
