package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/infographic-backend/internal/http/response"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/services"
)

type GenerationHandler struct {
	log       *logger.Logger
	images    services.ImageGenerationService
	optimizer services.PromptOptimizer
	resolver  services.TenantResolver
}

func NewGenerationHandler(
	log *logger.Logger,
	images services.ImageGenerationService,
	optimizer services.PromptOptimizer,
	resolver services.TenantResolver,
) *GenerationHandler {
	return &GenerationHandler{
		log:       log.With("handler", "GenerationHandler"),
		images:    images,
		optimizer: optimizer,
		resolver:  resolver,
	}
}

type generateImagesRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
	ImageSize   string `json:"imageSize"`
	ImageURL    string `json:"imageUrl"`
	UserScript  string `json:"userScript"`
	StylePrompt string `json:"stylePrompt"`
	StyleID     string `json:"styleId"`
}

// POST /generate-images
func (h *GenerationHandler) GenerateImages(c *gin.Context) {
	var req generateImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		badRequest(c, errors.New("prompt is required"))
		return
	}
	aspect, err := services.NormalizeAspectRatio(req.AspectRatio)
	if err != nil {
		badRequest(c, err)
		return
	}
	size, err := services.NormalizeImageSize(req.ImageSize)
	if err != nil {
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
	out, err := h.images.Generate(c.Request.Context(), caller, services.GenerateImageRequest{
		Prompt:         req.Prompt,
		AspectRatio:    aspect,
		ImageSize:      size,
		ReferenceImage: req.ImageURL,
		UserScript:     req.UserScript,
		StylePrompt:    req.StylePrompt,
		StyleID:        styleID,
	})
	if err != nil {
		fail(c, h.log, err, http.StatusBadGateway, "generation_failed")
		return
	}
	response.RespondOK(c, out)
}

type optimizePromptRequest struct {
	UserScript   string `json:"userScript"`
	StyleContext string `json:"styleContext"`
}

// POST /optimize-prompt
func (h *GenerationHandler) OptimizePrompt(c *gin.Context) {
	var req optimizePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.UserScript) == "" {
		badRequest(c, errors.New("userScript is required"))
		return
	}
	out, err := h.optimizer.Optimize(c.Request.Context(), req.UserScript, req.StyleContext)
	if err != nil {
		fail(c, h.log, err, http.StatusBadGateway, "generation_failed")
		return
	}
	response.RespondOK(c, out)
}
