// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered account in the Chronicle application.
//
// A user is never physically removed: destroy flips IsActive to false and the
// row stays retrievable by id. Posts and Images cascade with their owner;
// group memberships are cleared when either side goes away.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	Username    string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"size:254;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	FirstName   string     `gorm:"size:150" json:"first_name"`
	LastName    string     `gorm:"size:150" json:"last_name"`
	ProfilePic  string     `json:"profile_pic"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	IsStaff     bool       `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser bool       `gorm:"not null;default:false" json:"is_superuser"`
	DateJoined  time.Time  `gorm:"autoCreateTime" json:"date_joined"`
	LastLogin   *time.Time `json:"last_login"`
	Groups      []Group    `gorm:"many2many:user_groups;constraint:OnDelete:CASCADE" json:"groups,omitempty"`
	Posts       []Post     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"posts,omitempty"`
	Images      []Image    `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

// BeforeCreate assigns an opaque UUID primary key when none is set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
