package repository

import (
	"context"
	"errors"

	"chronicle/internal/cache"
	"chronicle/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int, filter CategoryFilter) ([]models.Category, error)
}

// CategoryFilter narrows a category listing by position in the hierarchy.
// RootOnly selects top-level categories; ParentID selects direct children.
type CategoryFilter struct {
	RootOnly bool
	ParentID *uint
}

func (f CategoryFilter) empty() bool {
	return !f.RootOnly && f.ParentID == nil
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := readDB(r.db).WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Category", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Category already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategories(ctx)
	return nil
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Category name already taken")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategories(ctx)
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Category{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateCategories(ctx)
	return nil
}

func (r *categoryRepository) List(ctx context.Context, limit, offset int, filter CategoryFilter) ([]models.Category, error) {
	var categories []models.Category

	fetch := func() error {
		q := readDB(r.db).WithContext(ctx).
			Order("name ASC").
			Limit(limit).
			Offset(offset)
		if filter.RootOnly {
			q = q.Where("parent_id IS NULL")
		} else if filter.ParentID != nil {
			q = q.Where("parent_id = ?", *filter.ParentID)
		}
		if err := q.Find(&categories).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	}

	// The tree is small and changes rarely, cache the unfiltered first page.
	if offset == 0 && filter.empty() {
		if err := cache.Aside(ctx, cache.CategoryTreeKey(limit), &categories, cache.CategoryTTL, fetch); err != nil {
			return nil, err
		}
		return categories, nil
	}

	if err := fetch(); err != nil {
		return nil, err
	}
	return categories, nil
}
