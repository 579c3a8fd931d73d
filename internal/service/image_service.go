package service

import (
	"context"
	"path/filepath"
	"strings"

	"chronicle/internal/authz"
	"chronicle/internal/models"
	"chronicle/internal/repository"
	"chronicle/internal/storage"

	"github.com/google/uuid"
)

type ImageService struct {
	imageRepo repository.ImageRepository
	store     *storage.Store
}

func NewImageService(imageRepo repository.ImageRepository, store *storage.Store) *ImageService {
	return &ImageService{imageRepo: imageRepo, store: store}
}

type UploadImageInput struct {
	Filename string
	Content  []byte
	IsPublic *bool
}

// ListImages returns the caller's own images; admins see everyone's.
func (s *ImageService) ListImages(ctx context.Context, caller authz.Caller, limit, offset int) ([]models.Image, error) {
	if d := authz.IsAuthenticated(caller, authz.ActionList, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	if caller.Staff() {
		return s.imageRepo.List(ctx, limit, offset)
	}
	return s.imageRepo.ListByOwner(ctx, caller.ID(), limit, offset)
}

func (s *ImageService) GetImage(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Image, error) {
	if d := authz.IsAuthenticated(caller, authz.ActionRetrieve, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	image, err := s.imageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := authz.IsUserSelfOrAdmin(caller, authz.ActionRetrieve, image.OwnerID); d != authz.Allowed {
		return nil, authz.Err(d)
	}
	return image, nil
}

// UploadImage stores the file and its thumbnail, then records the image. The
// display name comes from the uploaded filename, never the request body.
func (s *ImageService) UploadImage(ctx context.Context, caller authz.Caller, in UploadImageInput) (*models.Image, error) {
	if d := authz.IsAuthenticated(caller, authz.ActionCreate, uuid.Nil); d != authz.Allowed {
		return nil, authz.Err(d)
	}

	saved, err := s.store.SaveImage(caller.ID(), in.Filename, in.Content)
	if err != nil {
		return nil, err
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}

	image := &models.Image{
		Path:          saved.Path,
		ThumbnailPath: saved.ThumbnailPath,
		Name:          deriveImageName(in.Filename),
		IsPublic:      isPublic,
		OwnerID:       caller.ID(),
	}
	if err := s.imageRepo.Create(ctx, image); err != nil {
		_ = s.store.Delete(saved.Path)
		return nil, err
	}
	return image, nil
}

// UpdateImage toggles visibility. The name and stored file are immutable.
func (s *ImageService) UpdateImage(ctx context.Context, caller authz.Caller, id uuid.UUID, isPublic *bool) (*models.Image, error) {
	image, err := s.GetImage(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if d := authz.IsUserSelfOrAdmin(caller, authz.ActionUpdate, image.OwnerID); d != authz.Allowed {
		return nil, authz.Err(d)
	}

	if isPublic != nil {
		image.IsPublic = *isPublic
	}
	if err := s.imageRepo.Update(ctx, image); err != nil {
		return nil, err
	}
	return image, nil
}

func (s *ImageService) DeleteImage(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	image, err := s.GetImage(ctx, caller, id)
	if err != nil {
		return err
	}
	if d := authz.IsUserSelfOrAdmin(caller, authz.ActionDestroy, image.OwnerID); d != authz.Allowed {
		return authz.Err(d)
	}

	if err := s.imageRepo.Delete(ctx, id); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Delete(image.Path); err != nil {
			return err
		}
	}
	return nil
}

// deriveImageName turns an uploaded filename into a stored display name,
// capped to the column size.
func deriveImageName(filename string) string {
	base := filepath.Base(filepath.FromSlash(filename))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "untitled"
	}
	if len(base) > 100 {
		base = base[:100]
	}
	return base
}
