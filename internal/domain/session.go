package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is the tier-state row. UpdatedAt is the activity watermark the
// classifier ages against; tier and lease mutations must not touch it.
type Session struct {
	ID    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title string    `gorm:"type:text;not null;default:''" json:"title"`

	Tier         Tier `gorm:"type:text;not null;default:'hot';index" json:"tier"`
	MessageCount int  `gorm:"not null;default:0" json:"message_count"`

	LeaseOwner     string     `gorm:"type:text;not null;default:''" json:"lease_owner,omitempty"`
	LeaseExpiresAt *time.Time `gorm:"index" json:"lease_expires_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (Session) TableName() string { return "session" }

// Message is a hot-tier conversation row. Rows exist only while the owning
// session is hot; hot-to-cold migration moves them to message_archive.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	Role      string    `gorm:"type:text;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Message) TableName() string { return "message" }

// ArchivedMessage mirrors Message in the cold tier.
type ArchivedMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	Role      string    `gorm:"type:text;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (ArchivedMessage) TableName() string { return "message_archive" }
