package service

import (
	"context"
	"strings"
	"testing"

	"chronicle/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostService(postRepo *postRepoStub, visitRepo *visitRepoStub) *PostService {
	return NewPostService(postRepo, visitRepo, noopCategoryRepo(), nil)
}

func TestPostService_CreatePost(t *testing.T) {
	t.Parallel()

	t.Run("anonymous is rejected", func(t *testing.T) {
		t.Parallel()
		svc := newPostService(noopPostRepo(), noopVisitRepo())
		_, err := svc.CreatePost(context.Background(), anonymous(), CreatePostInput{Title: "Hi"})
		assertUnauthorizedError(t, err)
	})

	t.Run("title required", func(t *testing.T) {
		t.Parallel()
		svc := newPostService(noopPostRepo(), noopVisitRepo())
		author := &models.User{ID: uuid.New()}
		_, err := svc.CreatePost(context.Background(), callerFor(author), CreatePostInput{Title: "   "})
		assertValidationError(t, err)
	})

	t.Run("title too long", func(t *testing.T) {
		t.Parallel()
		svc := newPostService(noopPostRepo(), noopVisitRepo())
		author := &models.User{ID: uuid.New()}
		_, err := svc.CreatePost(context.Background(), callerFor(author), CreatePostInput{
			Title: strings.Repeat("x", 101),
		})
		assertValidationError(t, err)
	})

	t.Run("owner is the caller", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		var created *models.Post
		repo.createFn = func(_ context.Context, p *models.Post) error {
			created = p
			return nil
		}
		svc := newPostService(repo, noopVisitRepo())

		author := &models.User{ID: uuid.New()}
		post, err := svc.CreatePost(context.Background(), callerFor(author), CreatePostInput{Title: "Hello"})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, author.ID, post.OwnerID)
	})
}

func TestPostService_RetrievePost_OwnerDoesNotCount(t *testing.T) {
	t.Parallel()
	owner := &models.User{ID: uuid.New()}
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, OwnerID: owner.ID, ViewCount: 5}, nil
	}
	incremented := false
	repo.incrementViewsFn = func(context.Context, uint) error {
		incremented = true
		return nil
	}
	svc := newPostService(repo, noopVisitRepo())

	detail, err := svc.RetrievePost(context.Background(), callerFor(owner), 1)
	require.NoError(t, err)
	assert.False(t, incremented, "owner reads must not bump the counter")
	assert.Nil(t, detail.VisitLogID)
	assert.Equal(t, int64(5), detail.Post.ViewCount)
}

func TestPostService_RetrievePost_AnonymousCountsView(t *testing.T) {
	t.Parallel()
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, OwnerID: uuid.New(), ViewCount: 5}, nil
	}
	incremented := false
	repo.incrementViewsFn = func(context.Context, uint) error {
		incremented = true
		return nil
	}
	visits := noopVisitRepo()
	visitOpened := false
	visits.createFn = func(context.Context, *models.VisitLog) error {
		visitOpened = true
		return nil
	}
	svc := newPostService(repo, visits)

	detail, err := svc.RetrievePost(context.Background(), anonymous(), 1)
	require.NoError(t, err)
	assert.True(t, incremented)
	assert.False(t, visitOpened, "anonymous readers get no visit log")
	assert.Nil(t, detail.VisitLogID)
	assert.Equal(t, int64(6), detail.Post.ViewCount)
}

func TestPostService_RetrievePost_ReaderOpensVisitLog(t *testing.T) {
	t.Parallel()
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, OwnerID: uuid.New()}, nil
	}
	visits := noopVisitRepo()
	visits.createFn = func(_ context.Context, v *models.VisitLog) error {
		v.ID = 42
		return nil
	}
	svc := newPostService(repo, visits)

	reader := &models.User{ID: uuid.New()}
	detail, err := svc.RetrievePost(context.Background(), callerFor(reader), 1)
	require.NoError(t, err)
	require.NotNil(t, detail.VisitLogID)
	assert.Equal(t, uint(42), *detail.VisitLogID)
}

func TestPostService_UpdatePost_OwnerOnly(t *testing.T) {
	t.Parallel()
	ownerID := uuid.New()
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, OwnerID: ownerID, Title: "Original"}, nil
	}
	svc := newPostService(repo, noopVisitRepo())

	title := "Changed"

	_, err := svc.UpdatePost(context.Background(), anonymous(), UpdatePostInput{PostID: 1, Title: &title})
	assertUnauthorizedError(t, err)

	stranger := &models.User{ID: uuid.New()}
	_, err = svc.UpdatePost(context.Background(), callerFor(stranger), UpdatePostInput{PostID: 1, Title: &title})
	assertForbiddenError(t, err)

	owner := &models.User{ID: ownerID}
	post, err := svc.UpdatePost(context.Background(), callerFor(owner), UpdatePostInput{PostID: 1, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Changed", post.Title)
}

func TestPostService_DeletePost_OwnerOnly(t *testing.T) {
	t.Parallel()
	ownerID := uuid.New()
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return &models.Post{ID: id, OwnerID: ownerID}, nil
	}
	deleted := false
	repo.deleteFn = func(context.Context, uint) error {
		deleted = true
		return nil
	}
	svc := newPostService(repo, noopVisitRepo())

	stranger := &models.User{ID: uuid.New()}
	err := svc.DeletePost(context.Background(), callerFor(stranger), 1)
	assertForbiddenError(t, err)
	assert.False(t, deleted)

	require.NoError(t, svc.DeletePost(context.Background(), callerFor(&models.User{ID: ownerID}), 1))
	assert.True(t, deleted)
}
