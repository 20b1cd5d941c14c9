package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/vectorcodec"
)

func TestEmbedWrapsProviderCodecRejection(t *testing.T) {
	svc := NewEmbeddingService(logger.Nop(), &fakeAI{dim: 2}, 4)
	_, err := svc.Embed(context.Background(), "hello")
	if !errors.Is(err, ErrInvalidProviderVector) {
		t.Fatalf("want ErrInvalidProviderVector, got %v", err)
	}
	if !errors.Is(err, vectorcodec.ErrInvalidDimension) {
		t.Fatalf("codec error should stay in the chain, got %v", err)
	}
	if got := embeddingFailureReason(err); got != ReasonInvalidVector {
		t.Fatalf("reason: want=%q got=%q", ReasonInvalidVector, got)
	}
}

func TestValidateKeepsCodecErrors(t *testing.T) {
	svc := NewEmbeddingService(logger.Nop(), &fakeAI{dim: 4}, 4)
	_, err := svc.Validate([]float64{1, 2})
	if !errors.Is(err, vectorcodec.ErrInvalidDimension) || errors.Is(err, ErrInvalidProviderVector) {
		t.Fatalf("caller vectors must fail with the bare codec error, got %v", err)
	}
}

func TestEmbeddingFailureReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrEmbeddingUnavailable, ReasonNoEmbedding},
		{upstreamSecretErr, ReasonProviderError},
		{context.DeadlineExceeded, ReasonProviderError},
		{vectorcodec.ErrInvalidValue, ReasonInvalidVector},
	}
	for _, tc := range cases {
		if got := embeddingFailureReason(tc.err); got != tc.want {
			t.Fatalf("reason(%v): want=%q got=%q", tc.err, tc.want, got)
		}
	}
}
