package server

import (
	"io"
	"strconv"
	"strings"

	"chronicle/internal/authz"
	"chronicle/internal/models"
	"chronicle/internal/repository"
	"chronicle/internal/service"
	"chronicle/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// postDetailResponse is a post plus the visit log opened for this reader.
type postDetailResponse struct {
	*models.Post
	VisitLogID *uint `json:"visit_log_id,omitempty"`
}

// ListPosts handles GET /api/posts
// @Summary List posts
// @Description Public listing with optional author, title, category and sort filters
// @Tags posts
// @Produce json
// @Param author query string false "Substring match on owner username"
// @Param title query string false "Substring match on title"
// @Param category query int false "Exact category ID"
// @Param sort query string false "Sort key: created, view or like"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	filter := repository.PostFilter{
		Author: c.Query("author"),
		Title:  c.Query("title"),
		Sort:   c.Query("sort"),
	}
	if categoryID := c.QueryInt("category", 0); categoryID > 0 {
		id := uint(categoryID)
		filter.CategoryID = &id
	}

	posts, err := s.postService.ListPosts(c.Context(), page.Limit, page.Offset, filter)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Retrieve a post
// @Description Non-owner reads bump the view counter; authenticated non-owner reads open a visit log whose ID is returned alongside the post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} postDetailResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.postService.RetrievePost(c.Context(), s.caller(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(postDetailResponse{
		Post:       detail.Post,
		VisitLogID: detail.VisitLogID,
	})
}

// CreatePost handles POST /api/posts. Accepts JSON or multipart; the
// multipart form may carry optional video and audio files.
// @Summary Create a post
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	caller := s.caller(c)

	in := service.CreatePostInput{IsPublic: true}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		in.Title = c.FormValue("title")
		in.Description = c.FormValue("description")
		in.Body = c.FormValue("body")
		if c.FormValue("is_public") == "false" {
			in.IsPublic = false
		}
		if raw := c.FormValue("category"); raw != "" {
			categoryID, convErr := strconv.ParseUint(raw, 10, 32)
			if convErr != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("Invalid category ID"))
			}
			id := uint(categoryID)
			in.CategoryID = &id
		}

		videoPath, err := s.saveUploadedBlob(c, caller, "video", storage.KindVideo)
		if err != nil {
			return respondServiceError(c, err)
		}
		audioPath, err := s.saveUploadedBlob(c, caller, "audio", storage.KindAudio)
		if err != nil {
			if videoPath != "" {
				_ = s.store.Delete(videoPath)
			}
			return respondServiceError(c, err)
		}
		in.VideoPath = videoPath
		in.AudioPath = audioPath
	} else {
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Body        string `json:"body"`
			CategoryID  *uint  `json:"category"`
			IsPublic    *bool  `json:"is_public"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Title = req.Title
		in.Description = req.Description
		in.Body = req.Body
		in.CategoryID = req.CategoryID
		if req.IsPublic != nil {
			in.IsPublic = *req.IsPublic
		}
	}

	post, err := s.postService.CreatePost(c.Context(), caller, in)
	if err != nil {
		if in.VideoPath != "" {
			_ = s.store.Delete(in.VideoPath)
		}
		if in.AudioPath != "" {
			_ = s.store.Delete(in.AudioPath)
		}
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT/PATCH /api/posts/:id (owner only)
// @Summary Update a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Body        *string `json:"body"`
		CategoryID  *uint   `json:"category"`
		IsPublic    *bool   `json:"is_public"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.Context(), s.caller(c), service.UpdatePostInput{
		PostID:      id,
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		CategoryID:  req.CategoryID,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id (owner only)
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.Context(), s.caller(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PostReadSignal handles POST /api/post_read_signal. It closes the visit
// log named in the body; only the log's own user may close it, and closing
// an already closed log is a no-op.
// @Summary Close a reading session
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{visit_log_id=int} true "Visit log to close"
// @Success 200 {object} models.VisitLog
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post_read_signal [post]
func (s *Server) PostReadSignal(c *fiber.Ctx) error {
	var req struct {
		VisitLogID uint `json:"visit_log_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.VisitLogID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("visit_log_id is required"))
	}

	log, err := s.visitService.CloseVisitLog(c.Context(), s.caller(c), req.VisitLogID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(log)
}

// saveUploadedBlob stores an optional multipart file field in the blob
// store and returns its relative path, or "" when the field is absent.
func (s *Server) saveUploadedBlob(c *fiber.Ctx, caller authz.Caller, field string, kind storage.MediaKind) (string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}

	f, err := header.Open()
	if err != nil {
		return "", models.NewValidationError("Unreadable " + field + " upload")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	return s.store.SaveBlob(caller.ID(), kind, header.Filename, content)
}
