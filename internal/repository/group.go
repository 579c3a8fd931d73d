package repository

import (
	"context"
	"errors"

	"chronicle/internal/models"

	"gorm.io/gorm"
)

// GroupRepository defines persistence operations for groups.
type GroupRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int) ([]models.Group, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository returns a new GroupRepository implementation.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := readDB(r.db).WithContext(ctx).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Group", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &group, nil
}

func (r *groupRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var groups []models.Group
	if err := readDB(r.db).WithContext(ctx).Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Group already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *groupRepository) Update(ctx context.Context, group *models.Group) error {
	if err := r.db.WithContext(ctx).Save(group).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Group name already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *groupRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Group{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *groupRepository) List(ctx context.Context, limit, offset int) ([]models.Group, error) {
	var groups []models.Group
	if err := readDB(r.db).WithContext(ctx).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&groups).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return groups, nil
}
