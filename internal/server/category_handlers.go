package server

import (
	"strconv"

	"chronicle/internal/models"
	"chronicle/internal/repository"
	"chronicle/internal/service"

	"github.com/gofiber/fiber/v2"
)

// The taxonomy is curated by staff; every route in this file requires a
// staff caller and unprivileged users get a 403 from the service layer.

// ListCategories handles GET /api/categories
// @Summary List categories
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param parent query string false "Filter by parent: 'root' for top-level, or a category ID for direct children"
// @Success 200 {array} models.Category
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /categories [get]
func (s *Server) ListCategories(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	var filter repository.CategoryFilter
	switch parent := c.Query("parent"); parent {
	case "":
	case "root":
		filter.RootOnly = true
	default:
		id, err := strconv.ParseUint(parent, 10, 64)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("parent must be 'root' or a category ID"))
		}
		parentID := uint(id)
		filter.ParentID = &parentID
	}

	categories, err := s.categoryService.ListCategories(c.Context(), s.caller(c), page.Limit, page.Offset, filter)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(categories)
}

// GetCategory handles GET /api/categories/:id
// @Summary Get a category by ID
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} models.Category
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [get]
func (s *Server) GetCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	category, err := s.categoryService.GetCategory(c.Context(), s.caller(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(category)
}

// CreateCategory handles POST /api/categories
// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,parent=int} true "Category data"
// @Success 201 {object} models.Category
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		ParentID *uint  `json:"parent"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.CreateCategory(c.Context(), s.caller(c), service.CategoryInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory handles PUT/PATCH /api/categories/:id
// @Summary Update a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param request body object{name=string,parent=int} true "Category data"
// @Success 200 {object} models.Category
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /categories/{id} [put]
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name     string `json:"name"`
		ParentID *uint  `json:"parent"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.UpdateCategory(c.Context(), s.caller(c), id, service.CategoryInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory handles DELETE /api/categories/:id
// @Summary Delete a category
// @Tags categories
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [delete]
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.categoryService.DeleteCategory(c.Context(), s.caller(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
