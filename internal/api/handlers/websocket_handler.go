package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newswise/backend/internal/chat"
	"github.com/newswise/backend/internal/metrics"
	"github.com/newswise/backend/pkg/logger"
)

type WebSocketHandler struct {
	engine *chat.Engine
}

func NewWebSocketHandler(engine *chat.Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: engine}
}

// HandleConnection runs the per-connection message loop. Each
// connection gets a session id on its first message if the client did
// not supply one, keeping multi-turn state working over the socket.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")
	metrics.ActiveWebsockets.Inc()

	defer func() {
		c.Close()
		metrics.ActiveWebsockets.Dec()
		logger.Info("WebSocket connection closed")
	}()

	sessionID := uuid.New().String()

	for {
		var msg struct {
			Type      string `json:"type"`
			Content   string `json:"content"`
			SessionID string `json:"session_id"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "query" || msg.Content == "" {
			continue
		}
		if msg.SessionID != "" {
			sessionID = msg.SessionID
		}

		logger.Info("Processing WebSocket query", zap.String("query", msg.Content))

		if err := h.streamResponse(c, msg.Content, sessionID); err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			h.sendError(c, "Failed to process query")
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, queryText, sessionID string) error {
	h.sendChunk(c, "status", "Processing query...")

	response := h.engine.ProcessQuery(context.Background(), queryText, sessionID)

	words := splitIntoWords(response.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" {
			chunk += " "
		}
		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":           "complete",
		"message_id":     response.ID,
		"session_id":     sessionID,
		"is_prompt":      response.IsPrompt,
		"confidence":     response.Confidence,
		"related_news":   response.RelatedNews,
		"financial_data": response.FinancialData,
		"table_data":     response.TableData,
		"intent":         response.Intent,
		"latency_ms":     response.LatencyMS,
	})
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
