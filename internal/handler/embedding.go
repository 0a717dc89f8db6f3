package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobchat/internal/model"
)

// EmbeddingUpdater applies batched job embedding updates.
type EmbeddingUpdater interface {
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
}

// EmbeddingHandler handles embedding maintenance requests.
type EmbeddingHandler struct {
	updater EmbeddingUpdater // nil when the search backend has no embedding storage
}

// NewEmbeddingHandler creates a new embedding handler.
func NewEmbeddingHandler(updater EmbeddingUpdater) *EmbeddingHandler {
	return &EmbeddingHandler{updater: updater}
}

// BatchUpdate handles POST /api/v1/embeddings/batch.
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	if h.updater == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Embedding storage is not configured"})
		return
	}

	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if len(req.Embeddings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No embeddings provided"})
		return
	}

	success, errs := h.updater.BatchUpdateEmbeddings(c.Request.Context(), req.Embeddings)

	c.JSON(http.StatusOK, model.EmbeddingBatchResponse{
		Success: success,
		Failed:  len(req.Embeddings) - success,
		Errors:  errs,
	})
}
