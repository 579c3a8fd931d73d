package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image is an uploaded media record. Name is derived from the uploaded
// file's original filename at creation, never taken from the request body.
// Path and ThumbnailPath are references into the blob store.
type Image struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Path          string    `gorm:"not null" json:"image"`
	ThumbnailPath string    `json:"thumbnail"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	IsPublic      bool      `gorm:"not null;default:true" json:"is_public"`
	OwnerID       uuid.UUID `gorm:"type:uuid;not null;index" json:"owner"`
	Owner         User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// BeforeCreate assigns an opaque UUID primary key when none is set.
func (i *Image) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
