package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CollectorUser is one user as seen by the remote collector: presence fields
// plus the append-only transcript the admin view reads.
type CollectorUser struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email      string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name       string         `gorm:"type:varchar(255)"`
	IsOnline   bool           `gorm:"default:false"`
	LastActive time.Time      `gorm:"index"`
	Chats      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (CollectorUser) TableName() string {
	return "collector_users"
}

// CollectorChatLine is one transcript entry inside CollectorUser.Chats.
type CollectorChatLine struct {
	Text      string `json:"text"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
}
