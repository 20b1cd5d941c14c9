package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/infographic-backend/internal/http/response"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/services"
)

type EmbeddingHandler struct {
	log        *logger.Logger
	embeddings services.EmbeddingService
}

func NewEmbeddingHandler(log *logger.Logger, embeddings services.EmbeddingService) *EmbeddingHandler {
	return &EmbeddingHandler{log: log.With("handler", "EmbeddingHandler"), embeddings: embeddings}
}

type embeddingRequest struct {
	Text string `json:"text"`
}

// POST /embeddings
func (h *EmbeddingHandler) CreateEmbedding(c *gin.Context) {
	var req embeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(c, errors.New("text is required"))
		return
	}
	emb, err := h.embeddings.Embed(c.Request.Context(), req.Text)
	if err != nil {
		fail(c, h.log, err, http.StatusBadGateway, "embedding_failed")
		return
	}
	response.RespondOK(c, gin.H{"embedding": emb.Values})
}
