package service

import (
	"context"
	"strings"

	"chronicle/internal/authz"
	"chronicle/internal/models"
	"chronicle/internal/repository"

	"github.com/google/uuid"
)

type GroupService struct {
	groupRepo repository.GroupRepository
}

func NewGroupService(groupRepo repository.GroupRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo}
}

// groupPolicy: anyone may read, only admins may write.
var groupPolicy = authz.IsAdminOrReadOnly

func (s *GroupService) ListGroups(ctx context.Context, caller authz.Caller, limit, offset int) ([]models.Group, error) {
	if d := groupPolicy(caller, authz.ActionList, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	return s.groupRepo.List(ctx, limit, offset)
}

func (s *GroupService) GetGroup(ctx context.Context, caller authz.Caller, id uint) (*models.Group, error) {
	if d := groupPolicy(caller, authz.ActionRetrieve, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	return s.groupRepo.GetByID(ctx, id)
}

func (s *GroupService) CreateGroup(ctx context.Context, caller authz.Caller, name string) (*models.Group, error) {
	if d := groupPolicy(caller, authz.ActionCreate, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Group name is required")
	}
	if len(name) > 150 {
		return nil, models.NewValidationError("Group name too long (max 150 characters)")
	}

	group := &models.Group{Name: name}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupService) UpdateGroup(ctx context.Context, caller authz.Caller, id uint, name string) (*models.Group, error) {
	if d := groupPolicy(caller, authz.ActionUpdate, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Group name is required")
	}
	if len(name) > 150 {
		return nil, models.NewValidationError("Group name too long (max 150 characters)")
	}

	group.Name = name
	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupService) DeleteGroup(ctx context.Context, caller authz.Caller, id uint) error {
	if d := groupPolicy(caller, authz.ActionDestroy, uuid.Nil); d != authz.Allowed {
		return authz.Err(d)
	}
	if _, err := s.groupRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.groupRepo.Delete(ctx, id)
}
