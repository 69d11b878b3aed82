package sessions

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/aura-archiver/internal/domain"
	"github.com/yungbote/aura-archiver/internal/pkg/dbctx"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, msgs []*types.Message) ([]*types.Message, error)
	CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error)
	// CopyToArchive moves the hot rows into message_archive without reading
	// them through Go. Re-runs are no-ops for rows already copied.
	CopyToArchive(dbc dbctx.Context, sessionID uuid.UUID) (int64, error)
	DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{
		db:  db,
		log: baseLog.With("repo", "MessageRepo"),
	}
}

func (r *messageRepo) Create(dbc dbctx.Context, msgs []*types.Message) ([]*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(msgs) == 0 {
		return []*types.Message{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepo) CountBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Message{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

func (r *messageRepo) CopyToArchive(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).Exec(`
    INSERT INTO message_archive (id, session_id, role, content, created_at)
    SELECT id, session_id, role, content, created_at
    FROM message
    WHERE session_id = ?
    ON CONFLICT (id) DO NOTHING
  `, sessionID)
	return res.RowsAffected, res.Error
}

func (r *messageRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Delete(&types.Message{})
	return res.RowsAffected, res.Error
}
