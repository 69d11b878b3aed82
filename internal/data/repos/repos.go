package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/aura-archiver/internal/data/repos/audit"
	"github.com/yungbote/aura-archiver/internal/data/repos/sessions"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

type SessionRepo = sessions.SessionRepo
type MessageRepo = sessions.MessageRepo
type ArchivedMessageRepo = sessions.ArchivedMessageRepo
type DeepArchiveRepo = sessions.DeepArchiveRepo

type TierAuditRepo = audit.TierAuditRepo

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return sessions.NewSessionRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return sessions.NewMessageRepo(db, baseLog)
}
func NewArchivedMessageRepo(db *gorm.DB, baseLog *logger.Logger) ArchivedMessageRepo {
	return sessions.NewArchivedMessageRepo(db, baseLog)
}
func NewDeepArchiveRepo(db *gorm.DB, baseLog *logger.Logger) DeepArchiveRepo {
	return sessions.NewDeepArchiveRepo(db, baseLog)
}
func NewTierAuditRepo(db *gorm.DB, baseLog *logger.Logger) TierAuditRepo {
	return audit.NewTierAuditRepo(db, baseLog)
}
