package repository

import (
	"context"
	"errors"

	"chronicle/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImageRepository defines persistence operations for image records.
type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error)
	Update(ctx context.Context, image *models.Image) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]models.Image, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Image, error)
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository returns a new ImageRepository implementation.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *models.Image) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *imageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	var image models.Image
	if err := readDB(r.db).WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Image", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &image, nil
}

func (r *imageRepository) Update(ctx context.Context, image *models.Image) error {
	if err := r.db.WithContext(ctx).Save(image).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *imageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.Image{}, "id = ?", id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *imageRepository) List(ctx context.Context, limit, offset int) ([]models.Image, error) {
	var images []models.Image
	if err := readDB(r.db).WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&images).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}

func (r *imageRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Image, error) {
	var images []models.Image
	if err := readDB(r.db).WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&images).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}
