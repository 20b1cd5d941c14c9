package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/infographic-backend/internal/http/response"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/payload"
	"github.com/yungbote/infographic-backend/internal/pkg/pointers"
	"github.com/yungbote/infographic-backend/internal/pkg/vectorcodec"
	"github.com/yungbote/infographic-backend/internal/platform/apierr"
	"github.com/yungbote/infographic-backend/internal/platform/gemini"
	"github.com/yungbote/infographic-backend/internal/services"
)

// classify maps service sentinels onto an API error. It returns nil for
// errors the caller should report with its route-specific fallback.
func classify(err error) *apierr.Error {
	if err == nil {
		return nil
	}
	if ae, ok := apierr.As(err); ok {
		return ae
	}
	switch {
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrNoCaller):
		return apierr.New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, services.ErrAuthConfigMissing):
		return apierr.New(http.StatusInternalServerError, "auth_config_missing", err)
	case errors.Is(err, services.ErrStorageConfigMissing):
		return apierr.New(http.StatusInternalServerError, "storage_config_missing", err)
	case errors.Is(err, services.ErrUnsupportedFormat):
		return apierr.New(http.StatusBadRequest, "unsupported_format", err)
	case errors.Is(err, services.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrInvalidProviderVector):
		return apierr.New(http.StatusBadGateway, "embedding_failed", err)
	case errors.Is(err, services.ErrInvalidArgument),
		errors.Is(err, services.ErrInvalidBlobName),
		errors.Is(err, services.ErrInvalidContainer),
		errors.Is(err, services.ErrFetchFailed),
		errors.Is(err, services.ErrPayloadTooLarge),
		errors.Is(err, payload.ErrInvalidEncoding),
		errors.Is(err, vectorcodec.ErrInvalidDimension),
		errors.Is(err, vectorcodec.ErrInvalidValue),
		errors.Is(err, vectorcodec.ErrMalformedLiteral):
		return apierr.New(http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, gemini.ErrUnparsableAIResponse):
		return apierr.New(http.StatusBadGateway, "parse_error", err)
	case errors.Is(err, services.ErrEmbeddingUnavailable):
		return apierr.New(http.StatusBadGateway, "embedding_failed", err)
	}
	return nil
}

// fail writes err as an envelope and logs anything that ends up as a 5xx.
func fail(c *gin.Context, log *logger.Logger, err error, fallbackStatus int, fallbackCode string) {
	ae := classify(err)
	if ae == nil {
		ae = apierr.New(fallbackStatus, fallbackCode, err)
	}
	if ae.Status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "code", ae.Code, "error", err)
	}
	_ = c.Error(err)
	response.RespondErr(c, ae, fallbackStatus, fallbackCode)
}

// failureText renders a failure reason carried in a 2xx body. The underlying
// error is appended only when detailed errors are enabled.
func failureText(reason string, cause error) string {
	if cause == nil || !response.DetailedErrors() {
		return reason
	}
	return reason + ": " + cause.Error()
}

func optionalFailureText(reason *string, cause error) *string {
	if reason == nil {
		return nil
	}
	return pointers.String(failureText(*reason, cause))
}

func badRequest(c *gin.Context, err error) {
	response.RespondError(c, http.StatusBadRequest, "bad_request", err)
}
