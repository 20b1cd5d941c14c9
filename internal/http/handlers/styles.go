package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/infographic-backend/internal/http/response"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/services"
)

type StyleHandler struct {
	log        *logger.Logger
	library    services.StyleLibraryService
	embeddings services.EmbeddingService
	backfill   services.BackfillService
	resolver   services.TenantResolver
}

func NewStyleHandler(
	log *logger.Logger,
	library services.StyleLibraryService,
	embeddings services.EmbeddingService,
	backfill services.BackfillService,
	resolver services.TenantResolver,
) *StyleHandler {
	return &StyleHandler{
		log:        log.With("handler", "StyleHandler"),
		library:    library,
		embeddings: embeddings,
		backfill:   backfill,
		resolver:   resolver,
	}
}

// GET /styles
func (h *StyleHandler) ListStyles(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	caller, ok := resolveCaller(c, h.log, h.resolver)
	if !ok {
		return
	}
	styles, err := h.library.List(c.Request.Context(), caller, limit)
	if err != nil {
		fail(c, h.log, err, http.StatusInternalServerError, "internal_error")
		return
	}
	response.RespondOK(c, gin.H{"styles": styles})
}

type createStyleRequest struct {
	Name        string    `json:"name"`
	Prompt      string    `json:"prompt"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	PreviewURL  string    `json:"previewUrl"`
	Embedding   []float64 `json:"embedding"`
}

// POST /styles
func (h *StyleHandler) CreateStyle(c *gin.Context) {
	var req createStyleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if len(req.Embedding) > 0 {
		if _, err := h.embeddings.Validate(req.Embedding); err != nil {
			badRequest(c, err)
			return
		}
	}
	caller, ok := resolveCaller(c, h.log, h.resolver)
	if !ok {
		return
	}
	created, err := h.library.Create(c.Request.Context(), caller, services.CreateStyleInput{
		Name:        req.Name,
		Prompt:      req.Prompt,
		Description: req.Description,
		Tags:        req.Tags,
		PreviewURL:  req.PreviewURL,
		Embedding:   req.Embedding,
	})
	if err != nil {
		fail(c, h.log, err, http.StatusInternalServerError, "internal_error")
		return
	}
	response.RespondCreated(c, gin.H{
		"style":            created.Style,
		"embedding_status": created.EmbeddingStatus,
		"embedding_error":  optionalFailureText(created.EmbeddingError, created.EmbeddingCause),
	})
}

// DELETE /styles/:id
func (h *StyleHandler) DeleteStyle(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	caller, ok := resolveCaller(c, h.log, h.resolver)
	if !ok {
		return
	}
	if err := h.library.Delete(c.Request.Context(), caller, id); err != nil {
		fail(c, h.log, err, http.StatusInternalServerError, "internal_error")
		return
	}
	response.RespondNoContent(c)
}

type searchStylesRequest struct {
	Embedding []float64 `json:"embedding"`
	TopK      int       `json:"topK"`
}

// POST /styles/search (GET with a JSON body is accepted too)
func (h *StyleHandler) SearchStyles(c *gin.Context) {
	var req searchStylesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	// The vector is checked before the caller is resolved so malformed
	// queries never reach the store.
	if _, err := h.embeddings.Validate(req.Embedding); err != nil {
		badRequest(c, err)
		return
	}
	caller, ok := resolveCaller(c, h.log, h.resolver)
	if !ok {
		return
	}
	matches, err := h.library.Search(c.Request.Context(), caller, req.Embedding, req.TopK)
	if err != nil {
		fail(c, h.log, err, http.StatusInternalServerError, "internal_error")
		return
	}
	response.RespondOK(c, gin.H{"results": matches})
}

type backfillRequest struct {
	Limit  int  `json:"limit"`
	DryRun bool `json:"dryRun"`
}

// POST /styles-backfill
func (h *StyleHandler) BackfillEmbeddings(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	caller, ok := resolveCaller(c, h.log, h.resolver)
	if !ok {
		return
	}
	tenantID := caller.TenantID
	out, err := h.backfill.Run(c.Request.Context(), services.BackfillRequest{
		TenantID: &tenantID,
		Limit:    req.Limit,
		DryRun:   req.DryRun,
	})
	if err != nil {
		fail(c, h.log, err, http.StatusInternalServerError, "backfill_failed")
		return
	}
	for i := range out.Failed {
		out.Failed[i].Reason = failureText(out.Failed[i].Reason, out.Failed[i].Cause)
	}
	response.RespondOK(c, out)
}
