package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/infographic-backend/internal/http/response"
	"github.com/yungbote/infographic-backend/internal/pkg/ctxutil"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/services"
)

// resolveCaller maps the verified identity onto tenant and user rows. It
// writes the error response itself and returns false when the request must
// stop.
func resolveCaller(c *gin.Context, log *logger.Logger, resolver services.TenantResolver) (*services.Caller, bool) {
	id := ctxutil.GetIdentity(c.Request.Context())
	if id == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
		return nil, false
	}
	if resolver == nil {
		response.RespondError(c, http.StatusInternalServerError, "internal_error", errors.New("tenant resolver not configured"))
		return nil, false
	}
	caller, err := resolver.Resolve(c.Request.Context(), id)
	if err != nil {
		fail(c, log, err, http.StatusInternalServerError, "internal_error")
		return nil, false
	}
	if caller == nil || caller.UserID == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrNoCaller)
		return nil, false
	}
	return caller, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		badRequest(c, errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// queryLimit parses ?limit=. Absent means 0 so the store applies its default.
func queryLimit(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, errors.New("limit must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

// optionalUUID parses a JSON string id; empty means none.
func optionalUUID(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
