package models

import (
	"time"

	"github.com/google/uuid"
)

// Post represents a piece of content in the Chronicle application.
//
// ViewCount is monotonic and bumped server-side on non-owner retrievals.
// IsPublic exists on the row but does not currently gate reads.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:100;not null" json:"title"`
	Description string     `gorm:"size:300" json:"description"`
	Body        string     `gorm:"type:text" json:"body"`
	VideoPath   string     `json:"video"`
	AudioPath   string     `json:"audio"`
	OwnerID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner"`
	Owner       User       `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	CategoryID  *uint      `gorm:"index" json:"category"`
	Category    *Category  `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
	ViewCount   int64      `gorm:"not null;default:0" json:"view"`
	LikeCount   int        `gorm:"not null;default:0" json:"like"`
	IsPublic    bool       `gorm:"not null;default:false" json:"is_public"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	VisitLogs   []VisitLog `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}
