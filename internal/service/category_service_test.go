package service

import (
	"context"
	"testing"

	"chronicle/internal/models"
	"chronicle/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_AdminOnlyEverywhere(t *testing.T) {
	t.Parallel()
	svc := NewCategoryService(noopCategoryRepo())
	regular := &models.User{ID: uuid.New()}

	_, err := svc.ListCategories(context.Background(), anonymous(), 20, 0, repository.CategoryFilter{})
	assertUnauthorizedError(t, err)

	_, err = svc.ListCategories(context.Background(), callerFor(regular), 20, 0, repository.CategoryFilter{})
	assertForbiddenError(t, err)

	_, err = svc.CreateCategory(context.Background(), callerFor(regular), CategoryInput{Name: "tech"})
	assertForbiddenError(t, err)

	err = svc.DeleteCategory(context.Background(), callerFor(regular), 1)
	assertForbiddenError(t, err)
}

func TestCategoryService_CreateRecordsCreator(t *testing.T) {
	t.Parallel()
	repo := noopCategoryRepo()
	var created *models.Category
	repo.createFn = func(_ context.Context, c *models.Category) error {
		created = c
		return nil
	}
	svc := NewCategoryService(repo)

	admin := &models.User{ID: uuid.New(), IsStaff: true}
	category, err := svc.CreateCategory(context.Background(), callerFor(admin), CategoryInput{Name: " tech "})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "tech", category.Name)
	require.NotNil(t, category.CreatedByID)
	assert.Equal(t, admin.ID, *category.CreatedByID)
}

func TestCategoryService_ParentValidation(t *testing.T) {
	t.Parallel()
	repo := noopCategoryRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Category, error) {
		if id == 7 {
			return &models.Category{ID: 7, Name: "parent"}, nil
		}
		return nil, models.NewNotFoundError("Category", id)
	}
	svc := NewCategoryService(repo)
	admin := &models.User{ID: uuid.New(), IsStaff: true}

	t.Run("unknown parent", func(t *testing.T) {
		missing := uint(99)
		_, err := svc.CreateCategory(context.Background(), callerFor(admin), CategoryInput{
			Name: "child", ParentID: &missing,
		})
		assertAppErrorCode(t, err, "NOT_FOUND")
	})

	t.Run("own parent", func(t *testing.T) {
		self := uint(7)
		_, err := svc.UpdateCategory(context.Background(), callerFor(admin), 7, CategoryInput{
			Name: "parent", ParentID: &self,
		})
		assertValidationError(t, err)
	})
}

func TestCategoryService_RejectsDescendantAsParent(t *testing.T) {
	t.Parallel()
	repo := noopCategoryRepo()

	// 1 <- 2 <- 3: moving 1 under 3 would close a cycle.
	parentOf := map[uint]*uint{2: ptrUint(1), 3: ptrUint(2)}
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Category, error) {
		if id < 1 || id > 3 {
			return nil, models.NewNotFoundError("Category", id)
		}
		return &models.Category{ID: id, Name: "node", ParentID: parentOf[id]}, nil
	}
	svc := NewCategoryService(repo)
	admin := &models.User{ID: uuid.New(), IsStaff: true}

	_, err := svc.UpdateCategory(context.Background(), callerFor(admin), 1, CategoryInput{
		Name: "node", ParentID: ptrUint(3),
	})
	assertValidationError(t, err)

	// Reparenting under an unrelated node stays legal.
	_, err = svc.UpdateCategory(context.Background(), callerFor(admin), 3, CategoryInput{
		Name: "node", ParentID: ptrUint(1),
	})
	require.NoError(t, err)
}

func ptrUint(v uint) *uint { return &v }
