package domain

import (
	"time"

	"github.com/google/uuid"
)

// ArchiveFormatColumnarV1 is the serialization format of deep-archive
// objects: column-major JSON, one array per message column.
const ArchiveFormatColumnarV1 = "columnar/v1"

// DeepArchiveObject records the object-storage artifact holding a deep-tier
// session. One row per session; a resumed migration re-upserts it with fresh
// verification results. Removed only when the session is deleted.
type DeepArchiveObject struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`
	ObjectKey string    `gorm:"type:text;not null" json:"object_key"`
	Format    string    `gorm:"type:text;not null;default:'columnar/v1'" json:"format"`
	RowCount  int       `gorm:"not null;default:0" json:"row_count"`
	Checksum  string    `gorm:"type:text;not null" json:"checksum"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (DeepArchiveObject) TableName() string { return "deep_archive_object" }
