package service

import (
	"context"
	"strings"

	"chronicle/internal/authz"
	"chronicle/internal/models"
	"chronicle/internal/repository"
	"chronicle/internal/storage"

	"github.com/google/uuid"
)

type PostService struct {
	postRepo     repository.PostRepository
	visitRepo    repository.VisitLogRepository
	categoryRepo repository.CategoryRepository
	store        *storage.Store
}

func NewPostService(postRepo repository.PostRepository, visitRepo repository.VisitLogRepository, categoryRepo repository.CategoryRepository, store *storage.Store) *PostService {
	return &PostService{
		postRepo:     postRepo,
		visitRepo:    visitRepo,
		categoryRepo: categoryRepo,
		store:        store,
	}
}

type CreatePostInput struct {
	Title       string
	Description string
	Body        string
	CategoryID  *uint
	IsPublic    bool
	VideoPath   string
	AudioPath   string
}

// UpdatePostInput carries a partial update; nil pointers leave fields alone.
type UpdatePostInput struct {
	PostID      uint
	Title       *string
	Description *string
	Body        *string
	CategoryID  *uint
	IsPublic    *bool
}

// PostDetail is a retrieved post plus the visit log opened for the reader,
// when one was.
type PostDetail struct {
	Post       *models.Post
	VisitLogID *uint
}

func (s *PostService) ListPosts(ctx context.Context, limit, offset int, filter repository.PostFilter) ([]models.Post, error) {
	return s.postRepo.List(ctx, limit, offset, filter)
}

func (s *PostService) CreatePost(ctx context.Context, caller authz.Caller, in CreatePostInput) (*models.Post, error) {
	if d := authz.IsAuthenticated(caller, authz.ActionCreate, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > 100 {
		return nil, models.NewValidationError("Title too long (max 100 characters)")
	}
	if len(in.Description) > 300 {
		return nil, models.NewValidationError("Description too long (max 300 characters)")
	}
	if in.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}

	post := &models.Post{
		Title:       title,
		Description: in.Description,
		Body:        in.Body,
		CategoryID:  in.CategoryID,
		IsPublic:    in.IsPublic,
		VideoPath:   in.VideoPath,
		AudioPath:   in.AudioPath,
		OwnerID:     caller.ID(),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// RetrievePost returns one post. Reading someone else's post bumps its view
// counter; an authenticated reader additionally gets a visit log opened so
// the client can report reading time back.
func (s *PostService) RetrievePost(ctx context.Context, caller authz.Caller, id uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &PostDetail{Post: post}
	isOwner := !caller.Anonymous() && caller.ID() == post.OwnerID
	if isOwner {
		return detail, nil
	}

	if err := s.postRepo.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	post.ViewCount++

	if !caller.Anonymous() {
		visit := &models.VisitLog{PostID: post.ID, UserID: caller.ID()}
		if err := s.visitRepo.Create(ctx, visit); err != nil {
			return nil, err
		}
		detail.VisitLogID = &visit.ID
	}

	return detail, nil
}

func (s *PostService) UpdatePost(ctx context.Context, caller authz.Caller, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if d := authz.IsOwnerOrReadOnly(caller, authz.ActionUpdate, post.OwnerID); d != authz.Allowed {
		return nil, authz.Err(d)
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("Title is required")
		}
		if len(title) > 100 {
			return nil, models.NewValidationError("Title too long (max 100 characters)")
		}
		post.Title = title
	}
	if in.Description != nil {
		if len(*in.Description) > 300 {
			return nil, models.NewValidationError("Description too long (max 300 characters)")
		}
		post.Description = *in.Description
	}
	if in.Body != nil {
		post.Body = *in.Body
	}
	if in.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		post.CategoryID = in.CategoryID
	}
	if in.IsPublic != nil {
		post.IsPublic = *in.IsPublic
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, caller authz.Caller, id uint) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d := authz.IsOwnerOrReadOnly(caller, authz.ActionDestroy, post.OwnerID); d != authz.Allowed {
		return authz.Err(d)
	}

	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}

	// Media blobs ride along with the row.
	if s.store != nil {
		if post.VideoPath != "" {
			_ = s.store.Delete(post.VideoPath)
		}
		if post.AudioPath != "" {
			_ = s.store.Delete(post.AudioPath)
		}
	}
	return nil
}
