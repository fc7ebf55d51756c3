package api

import (
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the JSON payload for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handlePing returns a simple liveness response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealth runs a health check and returns the full report. The HTTP
// status is 200 even for degraded states; clients branch on the report's
// status field.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(s.checker.Check(c.Context()))
}
