package models

import (
	"time"

	"github.com/google/uuid"
)

// Category labels posts. Deleting a category never cascades to its posts or
// children; their references are nulled instead.
type Category struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:150;uniqueIndex;not null" json:"name"`
	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedBy   *User      `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL" json:"-"`
	ParentID    *uint      `gorm:"index" json:"parent_id"`
	Parent      *Category  `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
