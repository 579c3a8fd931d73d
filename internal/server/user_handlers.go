package server

import (
	"chronicle/internal/models"
	"chronicle/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateUser handles POST /api/users (open registration)
// @Summary Register a new user
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string,first_name=string,last_name=string} true "Registration data"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req struct {
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		ProfilePic string `json:"profile_pic"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.Context(), service.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		ProfilePic: req.ProfilePic,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// ListUsers handles GET /api/users (staff only)
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	users, err := s.userService.ListUsers(c.Context(), s.caller(c), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetUser handles GET /api/users/:id
// @Summary Get a user by ID
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.Context(), s.caller(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateUser handles PUT/PATCH /api/users/:id. Absent fields are left
// untouched; privileged fields are silently dropped for non-staff callers.
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{id} [put]
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Username    *string `json:"username"`
		Email       *string `json:"email"`
		Password    *string `json:"password"`
		FirstName   *string `json:"first_name"`
		LastName    *string `json:"last_name"`
		ProfilePic  *string `json:"profile_pic"`
		IsActive    *bool   `json:"is_active"`
		IsStaff     *bool   `json:"is_staff"`
		IsSuperuser *bool   `json:"is_superuser"`
		GroupIDs    *[]uint `json:"groups"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateUser(c.Context(), s.caller(c), service.UpdateUserInput{
		TargetID:    id,
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		ProfilePic:  req.ProfilePic,
		IsActive:    req.IsActive,
		IsStaff:     req.IsStaff,
		IsSuperuser: req.IsSuperuser,
		GroupIDs:    req.GroupIDs,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// DeleteUser handles DELETE /api/users/:id. Accounts are deactivated, never
// removed; repeating the call is a no-op.
// @Summary Deactivate a user
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseUUID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.userService.DeactivateUser(c.Context(), s.caller(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
