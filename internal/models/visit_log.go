package models

import (
	"time"

	"github.com/google/uuid"
)

// VisitLog records one user's viewing session of one post, bounded by
// StartedAt and EndedAt. A row is created only when an authenticated caller
// who is not the post's owner retrieves the post; EndedAt stays null until
// the read-signal endpoint closes the session. Rows are never merged.
type VisitLog struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	PostID    uint       `gorm:"not null;index" json:"post"`
	Post      Post       `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user"`
	User      User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	StartedAt time.Time  `gorm:"autoCreateTime" json:"start_time"`
	EndedAt   *time.Time `json:"end_time"`
}
