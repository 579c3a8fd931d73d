package server

import (
	"github.com/gofiber/fiber/v2"
)

// ListVisitLogs handles GET /api/visits. Staff see every log; everyone
// else sees only their own reading sessions.
// @Summary List visit logs
// @Tags visits
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.VisitLog
// @Failure 401 {object} models.ErrorResponse
// @Router /visits [get]
func (s *Server) ListVisitLogs(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	logs, err := s.visitService.ListVisitLogs(c.Context(), s.caller(c), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(logs)
}

// GetVisitLog handles GET /api/visits/:id
// @Summary Get a visit log by ID
// @Tags visits
// @Produce json
// @Security BearerAuth
// @Param id path int true "Visit log ID"
// @Success 200 {object} models.VisitLog
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /visits/{id} [get]
func (s *Server) GetVisitLog(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	log, err := s.visitService.GetVisitLog(c.Context(), s.caller(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(log)
}
