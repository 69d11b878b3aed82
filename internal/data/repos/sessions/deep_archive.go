package sessions

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

type DeepArchiveRepo interface {
	GetBySession(dbc dbctx.Context, sessionID uuid.UUID) (*types.DeepArchiveObject, error)
	// Upsert keys on session_id: re-running a cold-to-deep migration rewrites
	// the same bookkeeping row instead of accumulating duplicates.
	Upsert(dbc dbctx.Context, obj *types.DeepArchiveObject) error
	DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error
}

type deepArchiveRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeepArchiveRepo(db *gorm.DB, baseLog *logger.Logger) DeepArchiveRepo {
	return &deepArchiveRepo{
		db:  db,
		log: baseLog.With("repo", "DeepArchiveRepo"),
	}
}

func (r *deepArchiveRepo) GetBySession(dbc dbctx.Context, sessionID uuid.UUID) (*types.DeepArchiveObject, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return nil, nil
	}
	var obj types.DeepArchiveObject
	err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Limit(1).
		Find(&obj).Error
	if err != nil {
		return nil, err
	}
	if obj.ID == uuid.Nil {
		return nil, nil
	}
	return &obj, nil
}

func (r *deepArchiveRepo) Upsert(dbc dbctx.Context, obj *types.DeepArchiveObject) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if obj == nil || obj.SessionID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"object_key", "format", "row_count", "checksum"}),
		}).
		Create(obj).Error
}

func (r *deepArchiveRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Delete(&types.DeepArchiveObject{}).Error
}
