package repository

import (
	"context"
	"errors"

	"chronicle/internal/cache"
	"chronicle/internal/models"
	"chronicle/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostFilter narrows post listings. Author and Title are substring
// matches; Sort is one of "created", "view" or "like" (descending).
type PostFilter struct {
	OwnerID    *uuid.UUID
	CategoryID *uint
	Author     string
	Title      string
	Sort       string
}

func (f PostFilter) empty() bool {
	return f.OwnerID == nil && f.CategoryID == nil &&
		f.Author == "" && f.Title == "" && f.Sort == ""
}

func (f PostFilter) orderClause() string {
	switch f.Sort {
	case "view":
		return "view_count DESC"
	case "like":
		return "like_count DESC"
	default:
		return "posts.created_at DESC"
	}
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int, filter PostFilter) ([]models.Post, error)
	// IncrementViews bumps the view counter in a single UPDATE so
	// concurrent reads never lose a count.
	IncrementViews(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePostsList(ctx)
	return nil
}

// GetByID is deliberately uncached: reads mutate the view counter, so a
// cached detail row would go stale on every hit.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := readDB(r.db).WithContext(ctx).
		Preload("Owner").
		Preload("Category").
		First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, filter PostFilter) ([]models.Post, error) {
	var posts []models.Post

	fetch := func() error {
		q := readDB(r.db).WithContext(ctx).
			Preload("Owner").
			Preload("Category").
			Order(filter.orderClause()).
			Limit(limit).
			Offset(offset)
		if filter.OwnerID != nil {
			q = q.Where("owner_id = ?", *filter.OwnerID)
		}
		if filter.CategoryID != nil {
			q = q.Where("category_id = ?", *filter.CategoryID)
		}
		if filter.Author != "" {
			q = q.Joins("JOIN users ON users.id = posts.owner_id").
				Where("users.username LIKE ?", "%"+filter.Author+"%")
		}
		if filter.Title != "" {
			q = q.Where("title LIKE ?", "%"+filter.Title+"%")
		}
		if err := q.Find(&posts).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	}

	// Only the unfiltered first page is hot enough to cache.
	if offset == 0 && filter.empty() {
		if err := cache.Aside(ctx, cache.PostsListKey(limit), &posts, cache.ListTTL, fetch); err != nil {
			return nil, err
		}
		return posts, nil
	}

	if err := fetch(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Exec(
		"UPDATE posts SET view_count = view_count + 1 WHERE id = ?", id,
	)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	observability.PostViewIncrements.Inc()
	return nil
}
