package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yungbote/aura-archiver/internal/archive"
	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func TestNewDefaultsToNightly(t *testing.T) {
	s, err := New(Config{Log: testLogger()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	next := s.NextRun(from)
	want := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next run = %s, want %s", next, want)
	}
}

func TestNewCustomExpression(t *testing.T) {
	s, err := New(Config{Log: testLogger(), CronExpr: "30 */6 * * *"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	from := time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC)
	next := s.NextRun(from)
	want := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next run = %s, want %s", next, want)
	}
}

// hangingSessionRepo models a database that never answers the candidate
// scan until the caller's deadline fires.
type hangingSessionRepo struct{}

func (hangingSessionRepo) Create(dbc dbctx.Context, s []*types.Session) ([]*types.Session, error) {
	return s, nil
}
func (hangingSessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error) {
	return nil, nil
}
func (hangingSessionRepo) ListNeedingMigration(dbc dbctx.Context, coldCutoff, deepCutoff, deleteCutoff time.Time, limit int) ([]*types.Session, error) {
	<-dbc.Ctx.Done()
	return nil, dbc.Ctx.Err()
}
func (hangingSessionRepo) ClaimLease(dbc dbctx.Context, id uuid.UUID, owner string, ttl time.Duration, now time.Time) (bool, error) {
	return false, nil
}
func (hangingSessionRepo) ReleaseLease(dbc dbctx.Context, id uuid.UUID, owner string) error {
	return nil
}
func (hangingSessionRepo) SetTier(dbc dbctx.Context, id uuid.UUID, tier types.Tier) error {
	return nil
}
func (hangingSessionRepo) ClearResidualMetadata(dbc dbctx.Context, id uuid.UUID) error {
	return nil
}
func (hangingSessionRepo) RecordActivity(dbc dbctx.Context, id uuid.UUID, messageDelta int, now time.Time) error {
	return nil
}

// A hung query must not stall the cron loop; the run deadline cancels it
// and fire returns.
func TestFireHonorsRunTimeout(t *testing.T) {
	log := testLogger()
	exec := archive.NewExecutor(log, nil, nil, nil, nil, nil, nil, archive.NewAuditor(nil, log), nil)
	runner := archive.NewRunner(log, hangingSessionRepo{}, exec, archive.DefaultThresholds(), time.Minute, 1)

	s, err := New(Config{Runner: runner, Log: log, RunTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.fire(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fire did not return after the run timeout")
	}
}

func TestNewRejectsBadExpression(t *testing.T) {
	if _, err := New(Config{Log: testLogger(), CronExpr: "not a cron line"}); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := New(Config{Log: testLogger(), CronExpr: "0 3 * *"}); err == nil {
		t.Fatal("expected error for missing field")
	}
}
