package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/infographic-backend/internal/http/response"
	"github.com/yungbote/infographic-backend/internal/pkg/ctxutil"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/services"
)

type AuthMiddleware struct {
	log      *logger.Logger
	verifier services.TokenVerifier
}

func NewAuthMiddleware(log *logger.Logger, verifier services.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), verifier: verifier}
}

// RequireAuth verifies the bearer token and stores the identity on the
// request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.verifier == nil {
			response.RespondError(c, http.StatusInternalServerError, "auth_config_missing", services.ErrAuthConfigMissing)
			return
		}
		id, err := am.verifier.Verify(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, services.ErrAuthConfigMissing) {
				am.log.Error("token verification unavailable", "error", err)
				response.RespondError(c, http.StatusInternalServerError, "auth_config_missing", err)
				return
			}
			am.log.Debug("token rejected", "path", c.Request.URL.Path, "error", err)
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthorized)
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}
