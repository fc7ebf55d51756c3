package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/foliodocs/folio/pkg/memory"
)

// SessionResponse is the reply for GET /v1/sessions/:id.
type SessionResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []memory.Message `json:"messages"`
}

// handleListSessions handles GET /v1/sessions requests.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	if s.config.Sessions == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "memory is not configured",
		})
	}

	sessions, err := s.config.Sessions.Sessions(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to list sessions",
		})
	}
	if sessions == nil {
		sessions = []memory.SessionInfo{}
	}

	return c.JSON(map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// handleGetSession handles GET /v1/sessions/:id requests.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	if s.config.Sessions == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "memory is not configured",
		})
	}

	id := c.Params("id")
	messages, err := s.config.Sessions.History(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to load session",
		})
	}
	if messages == nil {
		messages = []memory.Message{}
	}

	return c.JSON(SessionResponse{
		SessionID: id,
		Messages:  messages,
	})
}

// handleClearSession handles DELETE /v1/sessions/:id requests.
func (s *Server) handleClearSession(c *fiber.Ctx) error {
	if s.config.Sessions == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "memory is not configured",
		})
	}

	id := c.Params("id")
	if err := s.config.Sessions.Clear(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to clear session",
		})
	}

	return c.JSON(map[string]any{
		"session_id": id,
		"cleared":    true,
	})
}
