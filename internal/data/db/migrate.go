package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/aura-archiver/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Tier state + hot content
		&types.Session{},
		&types.Message{},

		// Cold tier
		&types.ArchivedMessage{},

		// Deep tier bookkeeping
		&types.DeepArchiveObject{},

		// Append-only transition audit
		&types.TierAudit{},
	)
}
