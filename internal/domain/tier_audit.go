package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailed  = "failed"
)

// TierAudit is the append-only record of tier transitions. For deletions it
// is written before the physical delete; a deleted session retains nothing
// but these rows.
type TierAudit struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"session_id"`
	FromTier  Tier           `gorm:"type:text;not null" json:"from_tier"`
	ToTier    Tier           `gorm:"type:text;not null" json:"to_tier"`
	Outcome   string         `gorm:"type:text;not null;index" json:"outcome"`
	Detail    datatypes.JSON `gorm:"type:jsonb" json:"detail,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (TierAudit) TableName() string { return "tier_audit" }
