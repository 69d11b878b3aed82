package sessions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, sessions []*types.Session) ([]*types.Session, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error)
	// ListNeedingMigration returns sessions whose watermark has aged past the
	// cutoff for their current tier, oldest first.
	ListNeedingMigration(dbc dbctx.Context, coldCutoff, deepCutoff, deleteCutoff time.Time, limit int) ([]*types.Session, error)
	// ClaimLease performs the single-flight conditional update: claim only
	// when unleased or the previous lease has expired.
	ClaimLease(dbc dbctx.Context, id uuid.UUID, owner string, ttl time.Duration, now time.Time) (bool, error)
	ReleaseLease(dbc dbctx.Context, id uuid.UUID, owner string) error
	// SetTier moves the tier pointer without touching the activity watermark.
	SetTier(dbc dbctx.Context, id uuid.UUID, tier types.Tier) error
	// ClearResidualMetadata strips everything but the identity row once a
	// session's content is gone: counters zeroed, lease released.
	ClearResidualMetadata(dbc dbctx.Context, id uuid.UUID) error
	// RecordActivity advances the watermark after a hot-tier append.
	RecordActivity(dbc dbctx.Context, id uuid.UUID, messageDelta int, now time.Time) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{
		db:  db,
		log: baseLog.With("repo", "SessionRepo"),
	}
}

func (r *sessionRepo) Create(dbc dbctx.Context, sessions []*types.Session) ([]*types.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(sessions) == 0 {
		return []*types.Session{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var sess types.Session
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&sess).Error
	if err != nil {
		return nil, err
	}
	if sess.ID == uuid.Nil {
		return nil, nil
	}
	return &sess, nil
}

func (r *sessionRepo) ListNeedingMigration(dbc dbctx.Context, coldCutoff, deepCutoff, deleteCutoff time.Time, limit int) ([]*types.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Session
	q := transaction.WithContext(dbc.Ctx).
		Where(`
      (tier = ? AND updated_at < ?)
      OR (tier = ? AND updated_at < ?)
      OR (tier = ? AND updated_at < ?)
    `, types.TierHot, coldCutoff, types.TierCold, deepCutoff, types.TierDeep, deleteCutoff).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) ClaimLease(dbc dbctx.Context, id uuid.UUID, owner string, ttl time.Duration, now time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || owner == "" {
		return false, nil
	}
	expires := now.Add(ttl)
	// UpdateColumns: a lease claim is not session activity, the watermark
	// must stay put.
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Session{}).
		Where("id = ? AND (lease_owner = '' OR lease_expires_at IS NULL OR lease_expires_at < ?)", id, now).
		UpdateColumns(map[string]interface{}{
			"lease_owner":      owner,
			"lease_expires_at": expires,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *sessionRepo) ReleaseLease(dbc dbctx.Context, id uuid.UUID, owner string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || owner == "" {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Session{}).
		Where("id = ? AND lease_owner = ?", id, owner).
		UpdateColumns(map[string]interface{}{
			"lease_owner":      "",
			"lease_expires_at": nil,
		}).Error
}

func (r *sessionRepo) SetTier(dbc dbctx.Context, id uuid.UUID, tier types.Tier) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || !tier.Valid() {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Session{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"tier": tier}).Error
}

func (r *sessionRepo) ClearResidualMetadata(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Session{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"title":            "",
			"message_count":    0,
			"lease_owner":      "",
			"lease_expires_at": nil,
		}).Error
}

func (r *sessionRepo) RecordActivity(dbc dbctx.Context, id uuid.UUID, messageDelta int, now time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Session{}).
		Where("id = ? AND tier = ?", id, types.TierHot).
		UpdateColumns(map[string]interface{}{
			"message_count": gorm.Expr("message_count + ?", messageDelta),
			"updated_at":    now,
		}).Error
}
