// Package service contains the application's business logic, sitting between
// HTTP handlers and repositories. Every operation takes the calling identity
// and enforces the resource's permission policy before touching data.
package service

import (
	"context"

	"chronicle/internal/authz"
	"chronicle/internal/models"
	"chronicle/internal/repository"
	"chronicle/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo  repository.UserRepository
	groupRepo repository.GroupRepository
}

func NewUserService(userRepo repository.UserRepository, groupRepo repository.GroupRepository) *UserService {
	return &UserService{userRepo: userRepo, groupRepo: groupRepo}
}

type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	FirstName  string
	LastName   string
	ProfilePic string
}

// UpdateUserInput carries a partial update. Nil pointers leave the field
// untouched. IsActive, IsStaff, IsSuperuser and GroupIDs are privileged:
// non-admin callers have them silently ignored rather than rejected.
type UpdateUserInput struct {
	TargetID    uuid.UUID
	Username    *string
	Email       *string
	Password    *string
	FirstName   *string
	LastName    *string
	ProfilePic  *string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
	GroupIDs    *[]uint
}

// ListUsers is admin-only.
func (s *UserService) ListUsers(ctx context.Context, caller authz.Caller, limit, offset int) ([]models.User, error) {
	if d := authz.IsAdminUser(caller, authz.ActionList, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	return s.userRepo.List(ctx, limit, offset)
}

// Register creates a new account. Open to anyone.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("Username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   string(hashed),
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		ProfilePic: in.ProfilePic,
		IsActive:   true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns a single account. Self or admin only.
func (s *UserService) GetUser(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.User, error) {
	if d := authz.IsUserSelfOrAdmin(caller, authz.ActionRetrieve, id); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	return s.userRepo.GetByIDWithGroups(ctx, id)
}

// UpdateUser applies a partial update. Self or admin only; privileged fields
// from a non-admin self-update are dropped without error.
func (s *UserService) UpdateUser(ctx context.Context, caller authz.Caller, in UpdateUserInput) (*models.User, error) {
	if d := authz.IsUserSelfOrAdmin(caller, authz.ActionUpdate, in.TargetID); d != authz.Allowed {
		return nil, authz.Err(d)
	}

	user, err := s.userRepo.GetByIDWithGroups(ctx, in.TargetID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil && *in.Username != user.Username {
		if err := validation.ValidateUsername(*in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = *in.Username
	}
	if in.Email != nil {
		if err := validation.ValidateEmail(*in.Email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = *in.Email
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.ProfilePic != nil {
		user.ProfilePic = *in.ProfilePic
	}
	if in.Password != nil {
		if err := validation.ValidatePassword(*in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, models.NewInternalError(hashErr)
		}
		user.Password = string(hashed)
	}

	if caller.Staff() {
		if in.IsActive != nil {
			user.IsActive = *in.IsActive
		}
		if in.IsStaff != nil {
			user.IsStaff = *in.IsStaff
		}
		if in.IsSuperuser != nil {
			user.IsSuperuser = *in.IsSuperuser
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if in.GroupIDs != nil && caller.Staff() {
		groups, err := s.groupRepo.GetByIDs(ctx, *in.GroupIDs)
		if err != nil {
			return nil, err
		}
		if len(groups) != len(uniqueUints(*in.GroupIDs)) {
			return nil, models.NewValidationError("Unknown group in request")
		}
		if err := s.userRepo.ReplaceGroups(ctx, user, groups); err != nil {
			return nil, err
		}
		user.Groups = groups
	}

	return user, nil
}

// DeactivateUser soft-deletes an account. Self or admin only; deactivating
// an already-inactive account succeeds.
func (s *UserService) DeactivateUser(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	if d := authz.IsUserSelfOrAdmin(caller, authz.ActionDestroy, id); d != authz.Allowed {
		return authz.Err(d)
	}
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.userRepo.Deactivate(ctx, id)
}

func uniqueUints(in []uint) []uint {
	seen := make(map[uint]struct{}, len(in))
	out := make([]uint, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
