package sessions

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

type ArchivedMessageRepo interface {
	// ListBySession returns cold rows in a stable order so serialization is
	// deterministic across runs.
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ArchivedMessage, error)
	CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error)
	DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error)
}

type archivedMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArchivedMessageRepo(db *gorm.DB, baseLog *logger.Logger) ArchivedMessageRepo {
	return &archivedMessageRepo{
		db:  db,
		log: baseLog.With("repo", "ArchivedMessageRepo"),
	}
}

func (r *archivedMessageRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ArchivedMessage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ArchivedMessage
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

func (r *archivedMessageRepo) CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ArchivedMessage{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

func (r *archivedMessageRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Delete(&types.ArchivedMessage{})
	return res.RowsAffected, res.Error
}
