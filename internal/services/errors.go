package services

import (
	"errors"

	pkgerrors "github.com/yungbote/infographic-backend/internal/pkg/errors"
	"github.com/yungbote/infographic-backend/internal/pkg/vectorcodec"
)

var (
	ErrUnauthorized      = pkgerrors.ErrUnauthorized
	ErrNotFound          = pkgerrors.ErrNotFound
	ErrInvalidArgument   = pkgerrors.ErrInvalidArgument
	ErrUnsupportedFormat = pkgerrors.ErrUnsupportedFormat

	ErrAuthConfigMissing    = errors.New("identity provider configuration missing")
	ErrStorageConfigMissing = errors.New("storage credentials not configured")
	ErrInvalidBlobName      = errors.New("invalid blob name")
	ErrInvalidContainer     = errors.New("container not allowed")
	ErrNoCaller             = errors.New("caller has no resolvable email")
	ErrEmbeddingUnavailable = errors.New("embedding provider returned no vector")
	// ErrInvalidProviderVector wraps a codec rejection of a vector the
	// provider sent, as opposed to one the caller supplied.
	ErrInvalidProviderVector = errors.New("embedding provider returned a malformed vector")
	ErrPayloadTooLarge       = errors.New("payload exceeds size limit")
	ErrFetchFailed           = errors.New("unable to fetch remote content")
)

// Failure reasons reported to callers in place of raw error text.
const (
	ReasonProviderError = "provider_error"
	ReasonInvalidVector = "invalid_vector"
	ReasonNoEmbedding   = "no_embedding"
	ReasonStoreError    = "store_error"
	ReasonEmptyPrompt   = "empty_prompt"
)

// embeddingFailureReason classifies an Embed error.
func embeddingFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidProviderVector),
		errors.Is(err, vectorcodec.ErrInvalidDimension),
		errors.Is(err, vectorcodec.ErrInvalidValue):
		return ReasonInvalidVector
	case errors.Is(err, ErrEmbeddingUnavailable):
		return ReasonNoEmbedding
	default:
		return ReasonProviderError
	}
}
