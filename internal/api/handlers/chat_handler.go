package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newswise/backend/internal/chat"
	"github.com/newswise/backend/internal/storage/sqlite"
	"github.com/newswise/backend/pkg/logger"
)

type ChatHandler struct {
	engine *chat.Engine
	store  *sqlite.Client
}

func NewChatHandler(engine *chat.Engine, store *sqlite.Client) *ChatHandler {
	return &ChatHandler{engine: engine, store: store}
}

// HandleQuery processes one chat turn. A missing session id gets a
// fresh one, returned so the client can continue the conversation.
func (h *ChatHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		Query     string `json:"query"`
		SessionID string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	response := h.engine.ProcessQuery(c.Context(), req.Query, req.SessionID)

	return c.JSON(fiber.Map{
		"id":              response.ID,
		"session_id":      req.SessionID,
		"answer":          response.Answer,
		"confidence":      response.Confidence,
		"is_prompt":       response.IsPrompt,
		"related_news":    response.RelatedNews,
		"financial_data":  response.FinancialData,
		"comparison_data": response.ComparisonData,
		"table_data":      response.TableData,
		"intent":          response.Intent,
		"latency_ms":      response.LatencyMS,
	})
}

func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	limit := c.QueryInt("limit", 20)
	records, err := h.store.QueryHistory(sessionID, limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	history := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		history = append(history, fiber.Map{
			"id":         r.ID,
			"query":      r.QueryText,
			"answer":     r.Answer,
			"confidence": r.Confidence,
			"intent":     r.Intent,
			"created_at": r.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"history": history})
}
