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

type BlobHandler struct {
	log   *logger.Logger
	blobs services.BlobCredentialService
}

func NewBlobHandler(log *logger.Logger, blobs services.BlobCredentialService) *BlobHandler {
	return &BlobHandler{log: log.With("handler", "BlobHandler"), blobs: blobs}
}

type blobCredentialRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Container   string `json:"container"`
}

// POST /blob-sas
func (h *BlobHandler) IssueUploadCredential(c *gin.Context) {
	var req blobCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.FileName) == "" {
		badRequest(c, errors.New("fileName is required"))
		return
	}
	cred, err := h.blobs.Issue(req.FileName, req.ContentType, req.Container)
	if err != nil {
		fail(c, h.log, err, http.StatusInternalServerError, "internal_error")
		return
	}
	h.log.Info("upload credential issued", "blob", cred.BlobName, "container", cred.Container)
	response.RespondOK(c, cred)
}
