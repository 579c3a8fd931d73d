package server

import (
	"chronicle/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListGroups handles GET /api/groups
// @Summary List groups
// @Tags groups
// @Produce json
// @Success 200 {array} models.Group
// @Router /groups [get]
func (s *Server) ListGroups(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	groups, err := s.groupService.ListGroups(c.Context(), s.caller(c), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(groups)
}

// GetGroup handles GET /api/groups/:id
// @Summary Get a group by ID
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} models.Group
// @Failure 404 {object} models.ErrorResponse
// @Router /groups/{id} [get]
func (s *Server) GetGroup(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	group, err := s.groupService.GetGroup(c.Context(), s.caller(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(group)
}

// CreateGroup handles POST /api/groups (staff only)
// @Summary Create a group
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string} true "Group data"
// @Success 201 {object} models.Group
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /groups [post]
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	group, err := s.groupService.CreateGroup(c.Context(), s.caller(c), req.Name)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// UpdateGroup handles PUT/PATCH /api/groups/:id (staff only)
// @Summary Rename a group
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param request body object{name=string} true "Group data"
// @Success 200 {object} models.Group
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /groups/{id} [put]
func (s *Server) UpdateGroup(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	group, err := s.groupService.UpdateGroup(c.Context(), s.caller(c), id, req.Name)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(group)
}

// DeleteGroup handles DELETE /api/groups/:id (staff only)
// @Summary Delete a group
// @Tags groups
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /groups/{id} [delete]
func (s *Server) DeleteGroup(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.groupService.DeleteGroup(c.Context(), s.caller(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
