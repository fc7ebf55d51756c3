package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/agent"
	"github.com/foliodocs/folio/pkg/memory"
)

// AskRequest is the body for POST /v1/ask.
type AskRequest struct {
	Question string `json:"question"`

	// TopK overrides the configured retrieval depth when positive.
	TopK int `json:"top_k,omitempty"`

	// SessionID continues an existing conversation. Empty starts a new
	// session when memory is configured.
	SessionID string `json:"session_id,omitempty"`
}

// AskResponse is the reply for POST /v1/ask.
type AskResponse struct {
	Answer    string           `json:"answer"`
	Citations []agent.Citation `json:"citations"`
	SessionID string           `json:"session_id,omitempty"`
}

// handleAsk handles POST /v1/ask requests. With memory configured, the
// question is recorded before the history is read so the conversational
// context window includes the current turn.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	if s.config.Orchestrator == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "ask is not configured: a provider is required",
		})
	}

	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "question is required",
		})
	}

	ctx := c.Context()

	var sessionID string
	var history []memory.Message
	if s.config.Sessions != nil {
		sessionID = req.SessionID
		if sessionID == "" {
			sessionID = memory.NewSessionID()
		}

		if err := s.config.Sessions.Append(ctx, sessionID, memory.Message{
			Role:    "user",
			Content: question,
		}); err != nil {
			s.logger.Warn("failed to record question",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}

		var err error
		history, err = s.config.Sessions.History(ctx, sessionID)
		if err != nil {
			s.logger.Warn("failed to load session history",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	answer, err := s.config.Orchestrator.Ask(ctx, question, agent.AskOptions{
		TopK:    req.TopK,
		History: history,
	})
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, agent.ErrRetrievalFailed) || errors.Is(err, agent.ErrSynthesisFailed) {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	if s.config.Sessions != nil {
		if err := s.config.Sessions.Append(ctx, sessionID, memory.Message{
			Role:    "assistant",
			Content: answer.Text,
		}); err != nil {
			s.logger.Warn("failed to record answer",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	citations := answer.Citations
	if citations == nil {
		citations = []agent.Citation{}
	}

	return c.JSON(AskResponse{
		Answer:    answer.Text,
		Citations: citations,
		SessionID: sessionID,
	})
}
