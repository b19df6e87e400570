package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/raggadon/pkg/service"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "healthy", Service: "raggadon"})
}

// handleSave handles POST /save with a {project, role, content} body.
func (s *Server) handleSave(c *fiber.Ctx) error {
	var req service.SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	res, err := s.service.Save(c.Context(), req)
	if err != nil {
		return s.fail(c, err, false)
	}
	return c.JSON(res)
}

// handleSaveBatch handles POST /save/batch with a {project, role, contents} body.
func (s *Server) handleSaveBatch(c *fiber.Ctx) error {
	var req service.SaveBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	res, err := s.service.SaveBatch(c.Context(), req)
	if err != nil {
		return s.fail(c, err, false)
	}
	return c.JSON(res)
}

// handleSearch handles GET /search.
// Query parameters:
//   - project (required)
//   - query (required): the search text
//   - limit (optional, default 5)
func (s *Server) handleSearch(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
	}

	res, err := s.service.Search(c.Context(), service.SearchRequest{
		Project: c.Query("project"),
		Query:   c.Query("query"),
		Limit:   limit,
	})
	if err != nil {
		return s.fail(c, err, false)
	}
	return c.JSON(res)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	res, err := s.service.Stats(c.Context(), c.Params("project"))
	if err != nil {
		return s.fail(c, err, false)
	}
	return c.JSON(res)
}

func (s *Server) handleProjectUsage(c *fiber.Ctx) error {
	res, err := s.service.ProjectUsage(c.Context(), c.Params("project"))
	if err != nil {
		return s.fail(c, err, true)
	}
	return c.JSON(res)
}

func (s *Server) handleUsage(c *fiber.Ctx) error {
	res, err := s.service.Usage(c.Context())
	if err != nil {
		return s.fail(c, err, true)
	}
	return c.JSON(res)
}

// fail maps err to a status code. Ledger outages are only reported as such
// on the accounting routes; Save and Search never see them.
func (s *Server) fail(c *fiber.Ctx, err error, accounting bool) error {
	status := statusFor(err, accounting)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func statusFor(err error, accounting bool) int {
	switch {
	case service.IsInvalidInput(err):
		return fiber.StatusBadRequest
	case accounting && service.IsLedgerUnavailable(err):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
