package archive

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/yungbote/aura-archiver/internal/clients/redis"
	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/objectstore"
	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func bgdbc() dbctx.Context { return dbctx.Background(context.Background()) }

// fakeState is a mutex-guarded stand-in for the relational store. The repo
// fakes below all share one instance so cross-table effects (copy, delete,
// tier flips) stay visible to each other, and lease claims stay atomic for
// the single-flight tests.
type fakeState struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*types.Session
	hot      map[uuid.UUID][]*types.Message
	cold     map[uuid.UUID][]*types.ArchivedMessage
	deep     map[uuid.UUID]*types.DeepArchiveObject
	audits   []*types.TierAudit

	failList  bool
	failAudit bool
}

func newFakeState() *fakeState {
	return &fakeState{
		sessions: map[uuid.UUID]*types.Session{},
		hot:      map[uuid.UUID][]*types.Message{},
		cold:     map[uuid.UUID][]*types.ArchivedMessage{},
		deep:     map[uuid.UUID]*types.DeepArchiveObject{},
	}
}

func (s *fakeState) addSession(tier types.Tier, updatedAt time.Time, messages int) *types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &types.Session{
		ID:        uuid.New(),
		Tier:      tier,
		UpdatedAt: updatedAt,
		CreatedAt: updatedAt.Add(-time.Hour),
	}
	s.sessions[sess.ID] = sess
	for i := 0; i < messages; i++ {
		row := &types.Message{
			ID:        uuid.New(),
			SessionID: sess.ID,
			Role:      "user",
			Content:   "hello",
			CreatedAt: updatedAt.Add(time.Duration(i) * time.Second),
		}
		switch tier {
		case types.TierHot:
			s.hot[sess.ID] = append(s.hot[sess.ID], row)
		case types.TierCold:
			s.cold[sess.ID] = append(s.cold[sess.ID], &types.ArchivedMessage{
				ID: row.ID, SessionID: row.SessionID, Role: row.Role,
				Content: row.Content, CreatedAt: row.CreatedAt,
			})
		}
	}
	sess.MessageCount = messages
	return sess
}

func (s *fakeState) auditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audits)
}

func (s *fakeState) session(id uuid.UUID) types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.sessions[id]
}

type fakeSessionRepo struct{ s *fakeState }

func (r *fakeSessionRepo) Create(dbc dbctx.Context, sessions []*types.Session) ([]*types.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range sessions {
		r.s.sessions[sess.ID] = sess
	}
	return sessions, nil
}

func (r *fakeSessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (r *fakeSessionRepo) ListNeedingMigration(dbc dbctx.Context, coldCutoff, deepCutoff, deleteCutoff time.Time, limit int) ([]*types.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failList {
		return nil, errors.New("connection refused")
	}
	var out []*types.Session
	for _, sess := range r.s.sessions {
		eligible := (sess.Tier == types.TierHot && sess.UpdatedAt.Before(coldCutoff)) ||
			(sess.Tier == types.TierCold && sess.UpdatedAt.Before(deepCutoff)) ||
			(sess.Tier == types.TierDeep && sess.UpdatedAt.Before(deleteCutoff))
		if eligible {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeSessionRepo) ClaimLease(dbc dbctx.Context, id uuid.UUID, owner string, ttl time.Duration, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return false, nil
	}
	if sess.LeaseOwner != "" && sess.LeaseExpiresAt != nil && sess.LeaseExpiresAt.After(now) {
		return false, nil
	}
	expires := now.Add(ttl)
	sess.LeaseOwner = owner
	sess.LeaseExpiresAt = &expires
	return true, nil
}

func (r *fakeSessionRepo) ReleaseLease(dbc dbctx.Context, id uuid.UUID, owner string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok || sess.LeaseOwner != owner {
		return nil
	}
	sess.LeaseOwner = ""
	sess.LeaseExpiresAt = nil
	return nil
}

func (r *fakeSessionRepo) SetTier(dbc dbctx.Context, id uuid.UUID, tier types.Tier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[id]; ok {
		sess.Tier = tier
	}
	return nil
}

func (r *fakeSessionRepo) ClearResidualMetadata(dbc dbctx.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[id]; ok {
		sess.Title = ""
		sess.MessageCount = 0
		sess.LeaseOwner = ""
		sess.LeaseExpiresAt = nil
	}
	return nil
}

func (r *fakeSessionRepo) RecordActivity(dbc dbctx.Context, id uuid.UUID, messageDelta int, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[id]; ok && sess.Tier == types.TierHot {
		sess.MessageCount += messageDelta
		sess.UpdatedAt = now
	}
	return nil
}

type fakeMessageRepo struct{ s *fakeState }

func (r *fakeMessageRepo) Create(dbc dbctx.Context, msgs []*types.Message) ([]*types.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range msgs {
		r.s.hot[m.SessionID] = append(r.s.hot[m.SessionID], m)
	}
	return msgs, nil
}

func (r *fakeMessageRepo) CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.hot[sessionID])), nil
}

func (r *fakeMessageRepo) CopyToArchive(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing := map[uuid.UUID]bool{}
	for _, m := range r.s.cold[sessionID] {
		existing[m.ID] = true
	}
	var copied int64
	for _, m := range r.s.hot[sessionID] {
		if existing[m.ID] {
			continue
		}
		r.s.cold[sessionID] = append(r.s.cold[sessionID], &types.ArchivedMessage{
			ID: m.ID, SessionID: m.SessionID, Role: m.Role,
			Content: m.Content, CreatedAt: m.CreatedAt,
		})
		copied++
	}
	return copied, nil
}

func (r *fakeMessageRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.hot[sessionID]))
	delete(r.s.hot, sessionID)
	return n, nil
}

type fakeArchivedRepo struct{ s *fakeState }

func (r *fakeArchivedRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ArchivedMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := append([]*types.ArchivedMessage{}, r.s.cold[sessionID]...)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID.String() < rows[j].ID.String()
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows, nil
}

func (r *fakeArchivedRepo) CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.cold[sessionID])), nil
}

func (r *fakeArchivedRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.cold[sessionID]))
	delete(r.s.cold, sessionID)
	return n, nil
}

type fakeDeepRepo struct{ s *fakeState }

func (r *fakeDeepRepo) GetBySession(dbc dbctx.Context, sessionID uuid.UUID) (*types.DeepArchiveObject, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	obj, ok := r.s.deep[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *obj
	return &cp, nil
}

func (r *fakeDeepRepo) Upsert(dbc dbctx.Context, obj *types.DeepArchiveObject) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *obj
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	r.s.deep[obj.SessionID] = &cp
	return nil
}

func (r *fakeDeepRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.deep, sessionID)
	return nil
}

type fakeAuditRepo struct{ s *fakeState }

func (r *fakeAuditRepo) Append(dbc dbctx.Context, rec *types.TierAudit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failAudit {
		return errors.New("audit store unavailable")
	}
	cp := *rec
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.s.audits = append(r.s.audits, &cp)
	return nil
}

func (r *fakeAuditRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.TierAudit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*types.TierAudit
	for _, rec := range r.s.audits {
		if rec.SessionID == sessionID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeTxManager runs the step body without a real transaction; the repo
// fakes mutate shared state directly.
type fakeTxManager struct{}

func (fakeTxManager) WithinTransaction(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Background(ctx))
}

// flakyStore wraps the in-memory object store with failure injection and
// call accounting.
type flakyStore struct {
	*objectstore.MemoryStore
	mu sync.Mutex

	failPut     bool
	tamperGet   bool
	putCalls    int
	deleteCalls int
	// audit rows present when Delete was first called; -1 until then.
	auditsAtFirstDelete int
	state               *fakeState
}

func newFlakyStore(state *fakeState) *flakyStore {
	return &flakyStore{
		MemoryStore:         objectstore.NewMemoryStore(),
		auditsAtFirstDelete: -1,
		state:               state,
	}
}

func (s *flakyStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	s.putCalls++
	fail := s.failPut
	s.mu.Unlock()
	if fail {
		return "", errors.New("dial tcp: i/o timeout")
	}
	return s.MemoryStore.Put(ctx, key, data)
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.MemoryStore.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	tamper := s.tamperGet
	s.mu.Unlock()
	if tamper {
		data = append(data, ' ')
	}
	return data, nil
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	audits := 0
	if s.state != nil {
		audits = s.state.auditCount()
	}
	s.mu.Lock()
	s.deleteCalls++
	if s.auditsAtFirstDelete < 0 {
		s.auditsAtFirstDelete = audits
	}
	s.mu.Unlock()
	return s.MemoryStore.Delete(ctx, key)
}

type fakeAlertBus struct {
	mu     sync.Mutex
	alerts []redisclient.Alert
}

func (b *fakeAlertBus) Publish(ctx context.Context, alert redisclient.Alert) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, alert)
	return nil
}

func (b *fakeAlertBus) Close() error { return nil }

type fixture struct {
	state  *fakeState
	store  *flakyStore
	alerts *fakeAlertBus
	exec   *Executor
	runner *Runner
}

func newFixture() *fixture {
	log := newTestLogger()
	state := newFakeState()
	store := newFlakyStore(state)
	alerts := &fakeAlertBus{}
	sessionRepo := &fakeSessionRepo{s: state}
	auditor := NewAuditor(&fakeAuditRepo{s: state}, log)
	exec := NewExecutor(
		log,
		fakeTxManager{},
		sessionRepo,
		&fakeMessageRepo{s: state},
		&fakeArchivedRepo{s: state},
		&fakeDeepRepo{s: state},
		store,
		auditor,
		alerts,
	)
	runner := NewRunner(log, sessionRepo, exec, DefaultThresholds(), time.Minute, 4)
	return &fixture{state: state, store: store, alerts: alerts, exec: exec, runner: runner}
}
