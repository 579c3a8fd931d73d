package server

import (
	"io"

	"chronicle/internal/models"
	"chronicle/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListImages handles GET /api/images. Staff see every image; everyone else
// sees only their own.
// @Summary List images
// @Tags images
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Image
// @Failure 401 {object} models.ErrorResponse
// @Router /images [get]
func (s *Server) ListImages(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	images, err := s.imageService.ListImages(c.Context(), s.caller(c), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(images)
}

// GetImage handles GET /api/images/:id
// @Summary Get an image by ID
// @Tags images
// @Produce json
// @Security BearerAuth
// @Param id path string true "Image ID"
// @Success 200 {object} models.Image
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id} [get]
func (s *Server) GetImage(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	image, err := s.imageService.GetImage(c.Context(), s.caller(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(image)
}

// UploadImage handles POST /api/images. The display name always comes from
// the uploaded filename, never the form.
// @Summary Upload an image
// @Tags images
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Image file"
// @Param is_public formData bool false "Visibility (default true)"
// @Success 201 {object} models.Image
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /images [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	header, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("An image file is required"))
	}

	f, err := header.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unreadable image upload"))
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	in := service.UploadImageInput{
		Filename: header.Filename,
		Content:  content,
	}
	if raw := c.FormValue("is_public"); raw != "" {
		isPublic := raw != "false"
		in.IsPublic = &isPublic
	}

	image, err := s.imageService.UploadImage(c.Context(), s.caller(c), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(image)
}

// UpdateImage handles PUT/PATCH /api/images/:id. Only visibility is
// mutable after upload.
// @Summary Update an image
// @Tags images
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Image ID"
// @Param request body object{is_public=bool} true "Visibility"
// @Success 200 {object} models.Image
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id} [put]
func (s *Server) UpdateImage(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		IsPublic *bool `json:"is_public"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	image, err := s.imageService.UpdateImage(c.Context(), s.caller(c), id, req.IsPublic)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(image)
}

// DeleteImage handles DELETE /api/images/:id
// @Summary Delete an image
// @Tags images
// @Security BearerAuth
// @Param id path string true "Image ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id} [delete]
func (s *Server) DeleteImage(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.imageService.DeleteImage(c.Context(), s.caller(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
