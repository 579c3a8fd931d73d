package service

import (
	"context"
	"strings"

	"chronicle/internal/authz"
	"chronicle/internal/models"
	"chronicle/internal/repository"

	"github.com/google/uuid"
)

type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

type CategoryInput struct {
	Name     string
	ParentID *uint
}

// Categories are an admin-curated taxonomy; every operation requires staff.

func (s *CategoryService) ListCategories(ctx context.Context, caller authz.Caller, limit, offset int, filter repository.CategoryFilter) ([]models.Category, error) {
	if d := authz.IsAdminUser(caller, authz.ActionList, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	return s.categoryRepo.List(ctx, limit, offset, filter)
}

func (s *CategoryService) GetCategory(ctx context.Context, caller authz.Caller, id uint) (*models.Category, error) {
	if d := authz.IsAdminUser(caller, authz.ActionRetrieve, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	return s.categoryRepo.GetByID(ctx, id)
}

func (s *CategoryService) CreateCategory(ctx context.Context, caller authz.Caller, in CategoryInput) (*models.Category, error) {
	if d := authz.IsAdminUser(caller, authz.ActionCreate, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	if err := s.validateInput(ctx, in, 0); err != nil {
		return nil, err
	}

	creator := caller.ID()
	category := &models.Category{
		Name:        strings.TrimSpace(in.Name),
		CreatedByID: &creator,
		ParentID:    in.ParentID,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, caller authz.Caller, id uint, in CategoryInput) (*models.Category, error) {
	if d := authz.IsAdminUser(caller, authz.ActionUpdate, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(ctx, in, id); err != nil {
		return nil, err
	}

	category.Name = strings.TrimSpace(in.Name)
	category.ParentID = in.ParentID
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) DeleteCategory(ctx context.Context, caller authz.Caller, id uint) error {
	if d := authz.IsAdminUser(caller, authz.ActionDestroy, uuid.Nil); d != authz.Allowed {
		return authz.Err(d)
	}
	if _, err := s.categoryRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.categoryRepo.Delete(ctx, id)
}

func (s *CategoryService) validateInput(ctx context.Context, in CategoryInput, selfID uint) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.NewValidationError("Category name is required")
	}
	if len(name) > 150 {
		return models.NewValidationError("Category name too long (max 150 characters)")
	}
	if in.ParentID != nil {
		if selfID != 0 && *in.ParentID == selfID {
			return models.NewValidationError("Category cannot be its own parent")
		}
		parent, err := s.categoryRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return err
		}
		if selfID != 0 {
			if err := s.checkAncestry(ctx, parent, selfID); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkAncestry walks up from parent and rejects the move if selfID is an
// ancestor, which would close a cycle. The walk is bounded so a corrupt
// chain cannot loop forever.
func (s *CategoryService) checkAncestry(ctx context.Context, parent *models.Category, selfID uint) error {
	const maxDepth = 32
	for depth := 0; parent.ParentID != nil && depth < maxDepth; depth++ {
		if *parent.ParentID == selfID {
			return models.NewValidationError("Category cannot be moved under one of its descendants")
		}
		next, err := s.categoryRepo.GetByID(ctx, *parent.ParentID)
		if err != nil {
			return err
		}
		parent = next
	}
	return nil
}
