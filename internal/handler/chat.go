package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jobchat/internal/model"
	"jobchat/internal/service"
)

// ChatHandler handles conversation HTTP requests.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// HandleTurn handles POST /api/v1/chat.
func (h *ChatHandler) HandleTurn(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var page model.Page
	if req.Page != nil {
		page = *req.Page
	}

	start := time.Now()
	result, err := h.chat.HandleTurn(c.Request.Context(), sessionID, req.Message, page)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Client went away; nothing to write.
			return
		}
		if errors.Is(err, service.ErrSearchExecutionFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "search execution failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Turn failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.ChatResponse{
		SessionID: sessionID,
		Result:    result,
		Took:      time.Since(start).Milliseconds(),
	})
}

// History handles GET /api/v1/sessions/:id/history.
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session ID"})
		return
	}

	turns, err := h.chat.History(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history: " + err.Error()})
		return
	}
	if turns == nil {
		turns = []model.Turn{}
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"turns":      turns,
	})
}
