package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/infographic-backend/internal/data/repos"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

const (
	defaultBackfillLimit       = 20
	maxBackfillLimit           = 100
	defaultBackfillConcurrency = 4
)

type BackfillRequest struct {
	// TenantID nil spans every tenant (CLI only).
	TenantID *uuid.UUID
	Limit    int
	DryRun   bool
}

// BackfillFailure reports one style that could not be embedded. Reason is a
// Reason* code; Cause is never serialized.
type BackfillFailure struct {
	StyleID uuid.UUID `json:"styleId"`
	Reason  string    `json:"reason"`
	Cause   error     `json:"-"`
}

type BackfillResult struct {
	Processed int               `json:"processed"`
	Updated   int               `json:"updated"`
	Failed    []BackfillFailure `json:"failed"`
	Remaining int64             `json:"remaining"`
	DryRun    bool              `json:"dryRun"`
}

type BackfillService interface {
	Run(ctx context.Context, req BackfillRequest) (*BackfillResult, error)
}

type backfillService struct {
	log         *logger.Logger
	styles      repos.StyleRepo
	embeddings  EmbeddingService
	concurrency int
}

func NewBackfillService(log *logger.Logger, styles repos.StyleRepo, embeddings EmbeddingService, concurrency int) BackfillService {
	if concurrency <= 0 {
		concurrency = defaultBackfillConcurrency
	}
	return &backfillService{
		log:         log.With("service", "BackfillService"),
		styles:      styles,
		embeddings:  embeddings,
		concurrency: concurrency,
	}
}

func clampBackfillLimit(n int) int {
	if n <= 0 {
		return defaultBackfillLimit
	}
	if n > maxBackfillLimit {
		return maxBackfillLimit
	}
	return n
}

// Run embeds a batch of styles that have no embedding. Item failures are
// collected, never returned as the error.
func (s *backfillService) Run(ctx context.Context, req BackfillRequest) (*BackfillResult, error) {
	start := time.Now()
	limit := clampBackfillLimit(req.Limit)

	missingBefore, err := s.styles.CountMissingEmbedding(ctx, nil, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("count missing embeddings: %w", err)
	}
	batch, err := s.styles.ListMissingEmbedding(ctx, nil, req.TenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list missing embeddings: %w", err)
	}

	out := &BackfillResult{Processed: len(batch), Failed: []BackfillFailure{}, DryRun: req.DryRun}
	var mu sync.Mutex
	fail := func(id uuid.UUID, reason string, cause error) {
		if cause != nil {
			s.log.Warn("style backfill failed", "style_id", id, "reason", reason, "error", cause)
		}
		mu.Lock()
		out.Failed = append(out.Failed, BackfillFailure{StyleID: id, Reason: reason, Cause: cause})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, st := range batch {
		g.Go(func() error {
			text := strings.TrimSpace(st.Prompt)
			if text == "" {
				fail(st.ID, ReasonEmptyPrompt, nil)
				return nil
			}
			emb, err := s.embeddings.Embed(gctx, text)
			if err != nil {
				fail(st.ID, embeddingFailureReason(err), err)
				return nil
			}
			if req.DryRun {
				mu.Lock()
				out.Updated++
				mu.Unlock()
				return nil
			}
			if err := s.styles.UpdateEmbedding(gctx, nil, st.ID, emb.Literal); err != nil {
				fail(st.ID, ReasonStoreError, err)
				return nil
			}
			mu.Lock()
			out.Updated++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if req.DryRun {
		out.Remaining = missingBefore - int64(out.Processed)
		if out.Remaining < 0 {
			out.Remaining = 0
		}
	} else {
		remaining, err := s.styles.CountMissingEmbedding(ctx, nil, req.TenantID)
		if err != nil {
			return nil, fmt.Errorf("count remaining embeddings: %w", err)
		}
		out.Remaining = remaining
	}

	s.log.Info("Embedding backfill finished",
		"processed", out.Processed,
		"updated", out.Updated,
		"failed", len(out.Failed),
		"remaining", out.Remaining,
		"dry_run", req.DryRun,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
