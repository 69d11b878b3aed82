package audit

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

// TierAuditRepo is append-only; there is deliberately no update or delete.
type TierAuditRepo interface {
	Append(dbc dbctx.Context, rec *types.TierAudit) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.TierAudit, error)
}

type tierAuditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTierAuditRepo(db *gorm.DB, baseLog *logger.Logger) TierAuditRepo {
	return &tierAuditRepo{
		db:  db,
		log: baseLog.With("repo", "TierAuditRepo"),
	}
}

func (r *tierAuditRepo) Append(dbc dbctx.Context, rec *types.TierAudit) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if rec == nil || rec.SessionID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(rec).Error
}

func (r *tierAuditRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.TierAudit, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TierAudit
	if sessionID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
