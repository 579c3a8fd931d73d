package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chronicle/internal/models"
	"chronicle/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Function-field stubs for each repository interface. Tests override just
// the calls they care about; everything else fails loudly.

type userRepoStub struct {
	getByIDFn           func(context.Context, uuid.UUID) (*models.User, error)
	getByIDWithGroupsFn func(context.Context, uuid.UUID) (*models.User, error)
	getByEmailFn        func(context.Context, string) (*models.User, error)
	getByUsernameFn     func(context.Context, string) (*models.User, error)
	createFn            func(context.Context, *models.User) error
	updateFn            func(context.Context, *models.User) error
	replaceGroupsFn     func(context.Context, *models.User, []models.Group) error
	deactivateFn        func(context.Context, uuid.UUID) error
	touchLastLoginFn    func(context.Context, uuid.UUID, time.Time) error
	listFn              func(context.Context, int, int) ([]models.User, error)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(context.Context, uuid.UUID) (*models.User, error) {
			return nil, errors.New("getByID not stubbed")
		},
		getByIDWithGroupsFn: func(context.Context, uuid.UUID) (*models.User, error) {
			return nil, errors.New("getByIDWithGroups not stubbed")
		},
		getByEmailFn: func(context.Context, string) (*models.User, error) {
			return nil, nil
		},
		getByUsernameFn: func(context.Context, string) (*models.User, error) {
			return nil, nil
		},
		createFn:         func(context.Context, *models.User) error { return nil },
		updateFn:         func(context.Context, *models.User) error { return nil },
		replaceGroupsFn:  func(context.Context, *models.User, []models.Group) error { return nil },
		deactivateFn:     func(context.Context, uuid.UUID) error { return nil },
		touchLastLoginFn: func(context.Context, uuid.UUID, time.Time) error { return nil },
		listFn:           func(context.Context, int, int) ([]models.User, error) { return nil, nil },
	}
}

func (s *userRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDWithGroups(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getByIDWithGroupsFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error { return s.createFn(ctx, u) }
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error { return s.updateFn(ctx, u) }
func (s *userRepoStub) ReplaceGroups(ctx context.Context, u *models.User, g []models.Group) error {
	return s.replaceGroupsFn(ctx, u, g)
}
func (s *userRepoStub) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.deactivateFn(ctx, id)
}
func (s *userRepoStub) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.touchLastLoginFn(ctx, id, at)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

type groupRepoStub struct {
	getByIDFn  func(context.Context, uint) (*models.Group, error)
	getByIDsFn func(context.Context, []uint) ([]models.Group, error)
	createFn   func(context.Context, *models.Group) error
	updateFn   func(context.Context, *models.Group) error
	deleteFn   func(context.Context, uint) error
	listFn     func(context.Context, int, int) ([]models.Group, error)
}

func noopGroupRepo() *groupRepoStub {
	return &groupRepoStub{
		getByIDFn: func(context.Context, uint) (*models.Group, error) {
			return nil, errors.New("getByID not stubbed")
		},
		getByIDsFn: func(context.Context, []uint) ([]models.Group, error) { return nil, nil },
		createFn:   func(context.Context, *models.Group) error { return nil },
		updateFn:   func(context.Context, *models.Group) error { return nil },
		deleteFn:   func(context.Context, uint) error { return nil },
		listFn:     func(context.Context, int, int) ([]models.Group, error) { return nil, nil },
	}
}

func (s *groupRepoStub) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	return s.getByIDFn(ctx, id)
}
func (s *groupRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.Group, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *groupRepoStub) Create(ctx context.Context, g *models.Group) error { return s.createFn(ctx, g) }
func (s *groupRepoStub) Update(ctx context.Context, g *models.Group) error { return s.updateFn(ctx, g) }
func (s *groupRepoStub) Delete(ctx context.Context, id uint) error         { return s.deleteFn(ctx, id) }
func (s *groupRepoStub) List(ctx context.Context, limit, offset int) ([]models.Group, error) {
	return s.listFn(ctx, limit, offset)
}

type categoryRepoStub struct {
	getByIDFn func(context.Context, uint) (*models.Category, error)
	createFn  func(context.Context, *models.Category) error
	updateFn  func(context.Context, *models.Category) error
	deleteFn  func(context.Context, uint) error
	listFn    func(context.Context, int, int, repository.CategoryFilter) ([]models.Category, error)
}

func noopCategoryRepo() *categoryRepoStub {
	return &categoryRepoStub{
		getByIDFn: func(context.Context, uint) (*models.Category, error) {
			return nil, errors.New("getByID not stubbed")
		},
		createFn: func(context.Context, *models.Category) error { return nil },
		updateFn: func(context.Context, *models.Category) error { return nil },
		deleteFn: func(context.Context, uint) error { return nil },
		listFn: func(context.Context, int, int, repository.CategoryFilter) ([]models.Category, error) {
			return nil, nil
		},
	}
}

func (s *categoryRepoStub) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	return s.getByIDFn(ctx, id)
}
func (s *categoryRepoStub) Create(ctx context.Context, c *models.Category) error {
	return s.createFn(ctx, c)
}
func (s *categoryRepoStub) Update(ctx context.Context, c *models.Category) error {
	return s.updateFn(ctx, c)
}
func (s *categoryRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *categoryRepoStub) List(ctx context.Context, limit, offset int, filter repository.CategoryFilter) ([]models.Category, error) {
	return s.listFn(ctx, limit, offset, filter)
}

type postRepoStub struct {
	createFn         func(context.Context, *models.Post) error
	getByIDFn        func(context.Context, uint) (*models.Post, error)
	updateFn         func(context.Context, *models.Post) error
	deleteFn         func(context.Context, uint) error
	listFn           func(context.Context, int, int, repository.PostFilter) ([]models.Post, error)
	incrementViewsFn func(context.Context, uint) error
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(context.Context, *models.Post) error { return nil },
		getByIDFn: func(context.Context, uint) (*models.Post, error) {
			return nil, errors.New("getByID not stubbed")
		},
		updateFn: func(context.Context, *models.Post) error { return nil },
		deleteFn: func(context.Context, uint) error { return nil },
		listFn: func(context.Context, int, int, repository.PostFilter) ([]models.Post, error) {
			return nil, nil
		},
		incrementViewsFn: func(context.Context, uint) error { return nil },
	}
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error { return s.createFn(ctx, p) }
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Update(ctx context.Context, p *models.Post) error { return s.updateFn(ctx, p) }
func (s *postRepoStub) Delete(ctx context.Context, id uint) error        { return s.deleteFn(ctx, id) }
func (s *postRepoStub) List(ctx context.Context, limit, offset int, f repository.PostFilter) ([]models.Post, error) {
	return s.listFn(ctx, limit, offset, f)
}
func (s *postRepoStub) IncrementViews(ctx context.Context, id uint) error {
	return s.incrementViewsFn(ctx, id)
}

type visitRepoStub struct {
	createFn     func(context.Context, *models.VisitLog) error
	getByIDFn    func(context.Context, uint) (*models.VisitLog, error)
	closeFn      func(context.Context, uint, time.Time) error
	listFn       func(context.Context, int, int) ([]models.VisitLog, error)
	listByUserFn func(context.Context, uuid.UUID, int, int) ([]models.VisitLog, error)
}

func noopVisitRepo() *visitRepoStub {
	return &visitRepoStub{
		createFn: func(context.Context, *models.VisitLog) error { return nil },
		getByIDFn: func(context.Context, uint) (*models.VisitLog, error) {
			return nil, errors.New("getByID not stubbed")
		},
		closeFn: func(context.Context, uint, time.Time) error { return nil },
		listFn:  func(context.Context, int, int) ([]models.VisitLog, error) { return nil, nil },
		listByUserFn: func(context.Context, uuid.UUID, int, int) ([]models.VisitLog, error) {
			return nil, nil
		},
	}
}

func (s *visitRepoStub) Create(ctx context.Context, v *models.VisitLog) error {
	return s.createFn(ctx, v)
}
func (s *visitRepoStub) GetByID(ctx context.Context, id uint) (*models.VisitLog, error) {
	return s.getByIDFn(ctx, id)
}
func (s *visitRepoStub) Close(ctx context.Context, id uint, at time.Time) error {
	return s.closeFn(ctx, id, at)
}
func (s *visitRepoStub) List(ctx context.Context, limit, offset int) ([]models.VisitLog, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *visitRepoStub) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.VisitLog, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}

type imageRepoStub struct {
	createFn      func(context.Context, *models.Image) error
	getByIDFn     func(context.Context, uuid.UUID) (*models.Image, error)
	updateFn      func(context.Context, *models.Image) error
	deleteFn      func(context.Context, uuid.UUID) error
	listFn        func(context.Context, int, int) ([]models.Image, error)
	listByOwnerFn func(context.Context, uuid.UUID, int, int) ([]models.Image, error)
}

func noopImageRepo() *imageRepoStub {
	return &imageRepoStub{
		createFn: func(context.Context, *models.Image) error { return nil },
		getByIDFn: func(context.Context, uuid.UUID) (*models.Image, error) {
			return nil, errors.New("getByID not stubbed")
		},
		updateFn: func(context.Context, *models.Image) error { return nil },
		deleteFn: func(context.Context, uuid.UUID) error { return nil },
		listFn:   func(context.Context, int, int) ([]models.Image, error) { return nil, nil },
		listByOwnerFn: func(context.Context, uuid.UUID, int, int) ([]models.Image, error) {
			return nil, nil
		},
	}
}

func (s *imageRepoStub) Create(ctx context.Context, i *models.Image) error {
	return s.createFn(ctx, i)
}
func (s *imageRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	return s.getByIDFn(ctx, id)
}
func (s *imageRepoStub) Update(ctx context.Context, i *models.Image) error {
	return s.updateFn(ctx, i)
}
func (s *imageRepoStub) Delete(ctx context.Context, id uuid.UUID) error { return s.deleteFn(ctx, id) }
func (s *imageRepoStub) List(ctx context.Context, limit, offset int) ([]models.Image, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *imageRepoStub) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Image, error) {
	return s.listByOwnerFn(ctx, ownerID, limit, offset)
}

// assertAppErrorCode asserts that err carries the given AppError code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, "VALIDATION_ERROR")
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, "FORBIDDEN")
}

func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, "UNAUTHORIZED")
}
