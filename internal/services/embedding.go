package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/vectorcodec"
	"github.com/yungbote/infographic-backend/internal/platform/gemini"
)

// Embedding is a provider vector that already passed the codec.
type Embedding struct {
	Values  []float64
	Literal string
}

type EmbeddingService interface {
	// Embed returns ErrEmbeddingUnavailable when the provider sends no vector
	// and ErrInvalidProviderVector (wrapping the codec error) when the vector
	// is malformed.
	Embed(ctx context.Context, text string) (*Embedding, error)
	// Validate runs a caller-supplied vector through the codec.
	Validate(values []float64) (string, error)
	Dim() int
}

type embeddingService struct {
	log *logger.Logger
	ai  gemini.Client
	dim int
}

func NewEmbeddingService(log *logger.Logger, ai gemini.Client, dim int) EmbeddingService {
	return &embeddingService{
		log: log.With("service", "EmbeddingService"),
		ai:  ai,
		dim: dim,
	}
}

func (s *embeddingService) Dim() int { return s.dim }

func (s *embeddingService) Validate(values []float64) (string, error) {
	return vectorcodec.Encode(values, s.dim)
}

func (s *embeddingService) Embed(ctx context.Context, text string) (*Embedding, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidArgument)
	}
	if s.ai == nil {
		return nil, fmt.Errorf("%w: ai client not configured", ErrEmbeddingUnavailable)
	}
	values, err := s.ai.EmbedText(ctx, s.ai.EmbedModel(), text)
	if err != nil {
		return nil, err
	}
	if values == nil {
		return nil, ErrEmbeddingUnavailable
	}
	lit, err := vectorcodec.Encode(values, s.dim)
	if err != nil {
		s.log.Warn("provider embedding rejected by codec", "model", s.ai.EmbedModel(), "len", len(values), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidProviderVector, err)
	}
	return &Embedding{Values: values, Literal: lit}, nil
}
