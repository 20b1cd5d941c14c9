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

type AnalysisHandler struct {
	log      *logger.Logger
	document services.DocumentAnalysisService
	style    services.StyleAnalysisService
	resolver services.TenantResolver
}

func NewAnalysisHandler(
	log *logger.Logger,
	document services.DocumentAnalysisService,
	style services.StyleAnalysisService,
	resolver services.TenantResolver,
) *AnalysisHandler {
	return &AnalysisHandler{
		log:      log.With("handler", "AnalysisHandler"),
		document: document,
		style:    style,
		resolver: resolver,
	}
}

type analyzeDocumentRequest struct {
	DocumentURL   string `json:"documentUrl"`
	Base64Content string `json:"base64Content"`
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType"`
}

// POST /analyze-document
func (h *AnalysisHandler) AnalyzeDocument(c *gin.Context) {
	var req analyzeDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.DocumentURL) == "" && strings.TrimSpace(req.Base64Content) == "" {
		badRequest(c, errors.New("documentUrl or base64Content is required"))
		return
	}
	out, err := h.document.Analyze(c.Request.Context(), services.MediaSource{
		Inline:      req.Base64Content,
		URL:         req.DocumentURL,
		FileName:    req.FileName,
		ContentType: req.ContentType,
	})
	if err != nil {
		fail(c, h.log, err, http.StatusBadGateway, "analysis_failed")
		return
	}
	response.RespondOK(c, out)
}

type analyzeStyleRequest struct {
	ReferencePreview string `json:"referencePreview"`
	ImageURL         string `json:"imageUrl"`
	Name             string `json:"name"`
}

// POST /analyze-style
func (h *AnalysisHandler) AnalyzeStyle(c *gin.Context) {
	var req analyzeStyleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.ReferencePreview) == "" && strings.TrimSpace(req.ImageURL) == "" {
		badRequest(c, errors.New("referencePreview or imageUrl is required"))
		return
	}
	caller, ok := resolveCaller(c, h.log, h.resolver)
	if !ok {
		return
	}
	out, err := h.style.Analyze(c.Request.Context(), caller, services.StyleAnalysisRequest{
		Preview:  req.ReferencePreview,
		ImageURL: req.ImageURL,
		Name:     req.Name,
	})
	if err != nil {
		fail(c, h.log, err, http.StatusBadGateway, "analysis_failed")
		return
	}
	out.EmbeddingError = optionalFailureText(out.EmbeddingError, out.EmbeddingCause)
	response.RespondOK(c, out)
}
