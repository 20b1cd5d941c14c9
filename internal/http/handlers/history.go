package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/infographic-backend/internal/http/response"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/services"
)

type HistoryHandler struct {
	log      *logger.Logger
	history  services.HistoryService
	resolver services.TenantResolver
}

func NewHistoryHandler(log *logger.Logger, history services.HistoryService, resolver services.TenantResolver) *HistoryHandler {
	return &HistoryHandler{log: log.With("handler", "HistoryHandler"), history: history, resolver: resolver}
}

// GET /history
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	caller, ok := resolveCaller(c, h.log, h.resolver)
	if !ok {
		return
	}
	rows, err := h.history.List(c.Request.Context(), caller, limit)
	if err != nil {
		fail(c, h.log, err, http.StatusInternalServerError, "internal_error")
		return
	}
	response.RespondOK(c, gin.H{"history": rows})
}

// GET /history/:id
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	caller, ok := resolveCaller(c, h.log, h.resolver)
	if !ok {
		return
	}
	row, err := h.history.Get(c.Request.Context(), caller, id)
	if err != nil {
		fail(c, h.log, err, http.StatusInternalServerError, "internal_error")
		return
	}
	response.RespondOK(c, row)
}

type createHistoryRequest struct {
	Prompt      string `json:"prompt"`
	ImageURL    string `json:"imageUrl"`
	UserScript  string `json:"userScript"`
	StylePrompt string `json:"stylePrompt"`
	StyleID     string `json:"styleId"`
}

// POST /history
func (h *HistoryHandler) CreateHistory(c *gin.Context) {
	var req createHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	styleID, err := optionalUUID(req.StyleID)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid styleId: %w", err))
		return
	}
	caller, ok := resolveCaller(c, h.log, h.resolver)
	if !ok {
		return
	}
	row, err := h.history.Create(c.Request.Context(), caller, services.HistoryInput{
		Prompt:      req.Prompt,
		ImageURL:    req.ImageURL,
		UserScript:  req.UserScript,
		StylePrompt: req.StylePrompt,
		StyleID:     styleID,
	})
	if err != nil {
		fail(c, h.log, err, http.StatusInternalServerError, "internal_error")
		return
	}
	response.RespondCreated(c, row)
}

// DELETE /history/:id
func (h *HistoryHandler) DeleteHistory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	caller, ok := resolveCaller(c, h.log, h.resolver)
	if !ok {
		return
	}
	if err := h.history.Delete(c.Request.Context(), caller, id); err != nil {
		fail(c, h.log, err, http.StatusInternalServerError, "internal_error")
		return
	}
	response.RespondNoContent(c)
}
