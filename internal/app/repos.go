package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/aura-archiver/internal/data/repos"
	"github.com/yungbote/aura-archiver/internal/pkg/logger"
)

type Repos struct {
	Session         repos.SessionRepo
	Message         repos.MessageRepo
	ArchivedMessage repos.ArchivedMessageRepo
	DeepArchive     repos.DeepArchiveRepo
	TierAudit       repos.TierAuditRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Session:         repos.NewSessionRepo(db, log),
		Message:         repos.NewMessageRepo(db, log),
		ArchivedMessage: repos.NewArchivedMessageRepo(db, log),
		DeepArchive:     repos.NewDeepArchiveRepo(db, log),
		TierAudit:       repos.NewTierAuditRepo(db, log),
	}
}
