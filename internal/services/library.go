package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/infographic-backend/internal/data/repos"
	types "github.com/yungbote/infographic-backend/internal/domain"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/pointers"
)

func requireUser(caller *Caller) (uuid.UUID, error) {
	if caller == nil || caller.UserID == nil {
		return uuid.Nil, ErrNoCaller
	}
	return *caller.UserID, nil
}

type CreateStyleInput struct {
	Name        string
	Prompt      string
	Description string
	Tags        []string
	PreviewURL  string
	// Embedding is optional; when empty one is computed from Prompt.
	Embedding []float64
}

type CreatedStyle struct {
	Style           *types.Style
	EmbeddingStatus EmbeddingStatus
	// EmbeddingError is one of the Reason* codes. EmbeddingCause keeps the
	// underlying error for logs and local development.
	EmbeddingError *string
	EmbeddingCause error
}

type StyleLibraryService interface {
	List(ctx context.Context, caller *Caller, limit int) ([]*types.Style, error)
	Create(ctx context.Context, caller *Caller, in CreateStyleInput) (*CreatedStyle, error)
	Delete(ctx context.Context, caller *Caller, id uuid.UUID) error
	// Search validates the query vector before touching the store.
	Search(ctx context.Context, caller *Caller, embedding []float64, topK int) ([]*types.StyleMatch, error)
}

type styleLibraryService struct {
	log        *logger.Logger
	styles     repos.StyleRepo
	embeddings EmbeddingService
}

func NewStyleLibraryService(log *logger.Logger, styles repos.StyleRepo, embeddings EmbeddingService) StyleLibraryService {
	return &styleLibraryService{
		log:        log.With("service", "StyleLibraryService"),
		styles:     styles,
		embeddings: embeddings,
	}
}

func (s *styleLibraryService) List(ctx context.Context, caller *Caller, limit int) ([]*types.Style, error) {
	userID, err := requireUser(caller)
	if err != nil {
		return nil, err
	}
	return s.styles.ListByOwner(ctx, nil, caller.TenantID, userID, limit)
}

func (s *styleLibraryService) Create(ctx context.Context, caller *Caller, in CreateStyleInput) (*CreatedStyle, error) {
	userID, err := requireUser(caller)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	prompt := strings.TrimSpace(in.Prompt)
	if name == "" || prompt == "" {
		return nil, fmt.Errorf("%w: name and prompt are required", ErrInvalidArgument)
	}

	out := &CreatedStyle{EmbeddingStatus: EmbeddingAbsent}
	var literal *string
	if len(in.Embedding) > 0 {
		lit, err := s.embeddings.Validate(in.Embedding)
		if err != nil {
			return nil, err
		}
		literal = &lit
		out.EmbeddingStatus = EmbeddingPresent
	} else {
		emb, err := s.embeddings.Embed(ctx, prompt)
		switch {
		case err == nil:
			literal = &emb.Literal
			out.EmbeddingStatus = EmbeddingPresent
		case errors.Is(err, ErrEmbeddingUnavailable):
		default:
			s.log.Warn("style embedding failed; saving without embedding", "error", err)
			out.EmbeddingStatus = EmbeddingFailed
			out.EmbeddingError = pointers.String(embeddingFailureReason(err))
			out.EmbeddingCause = err
		}
	}

	style := &types.Style{
		ID:          uuid.New(),
		TenantID:    caller.TenantID,
		CreatedBy:   userID,
		Name:        name,
		Prompt:      prompt,
		Description: strings.TrimSpace(in.Description),
		Tags:        normalizeTags(in.Tags),
		PreviewURL:  strings.TrimSpace(in.PreviewURL),
		Embedding:   literal,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.styles.Create(ctx, nil, style); err != nil {
		return nil, err
	}
	out.Style = style
	return out, nil
}

func (s *styleLibraryService) Delete(ctx context.Context, caller *Caller, id uuid.UUID) error {
	userID, err := requireUser(caller)
	if err != nil {
		return err
	}
	deleted, err := s.styles.DeleteOwned(ctx, nil, caller.TenantID, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.log.Info("Style deleted", "style_id", id)
	return nil
}

func (s *styleLibraryService) Search(ctx context.Context, caller *Caller, embedding []float64, topK int) ([]*types.StyleMatch, error) {
	literal, err := s.embeddings.Validate(embedding)
	if err != nil {
		return nil, err
	}
	userID, err := requireUser(caller)
	if err != nil {
		return nil, err
	}
	return s.styles.SearchNearest(ctx, nil, caller.TenantID, userID, literal, topK)
}

type HistoryInput struct {
	Prompt      string
	ImageURL    string
	UserScript  string
	StylePrompt string
	StyleID     *uuid.UUID
}

type HistoryService interface {
	List(ctx context.Context, caller *Caller, limit int) ([]*types.History, error)
	Get(ctx context.Context, caller *Caller, id uuid.UUID) (*types.History, error)
	Create(ctx context.Context, caller *Caller, in HistoryInput) (*types.History, error)
	Delete(ctx context.Context, caller *Caller, id uuid.UUID) error
}

type historyService struct {
	log     *logger.Logger
	history repos.HistoryRepo
	styles  repos.StyleRepo
}

func NewHistoryService(log *logger.Logger, history repos.HistoryRepo, styles repos.StyleRepo) HistoryService {
	return &historyService{
		log:     log.With("service", "HistoryService"),
		history: history,
		styles:  styles,
	}
}

func (s *historyService) List(ctx context.Context, caller *Caller, limit int) ([]*types.History, error) {
	userID, err := requireUser(caller)
	if err != nil {
		return nil, err
	}
	return s.history.ListByUser(ctx, nil, caller.TenantID, userID, limit)
}

func (s *historyService) Get(ctx context.Context, caller *Caller, id uuid.UUID) (*types.History, error) {
	userID, err := requireUser(caller)
	if err != nil {
		return nil, err
	}
	h, err := s.history.GetOwned(ctx, nil, caller.TenantID, userID, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNotFound
	}
	return h, nil
}

func (s *historyService) Create(ctx context.Context, caller *Caller, in HistoryInput) (*types.History, error) {
	userID, err := requireUser(caller)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Prompt) == "" || strings.TrimSpace(in.ImageURL) == "" {
		return nil, fmt.Errorf("%w: prompt and imageUrl are required", ErrInvalidArgument)
	}
	styleID, err := s.tenantStyle(ctx, caller.TenantID, in.StyleID)
	if err != nil {
		return nil, err
	}
	h := &types.History{
		ID:          uuid.New(),
		TenantID:    caller.TenantID,
		UserID:      userID,
		Prompt:      strings.TrimSpace(in.Prompt),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		UserScript:  in.UserScript,
		StylePrompt: in.StylePrompt,
		StyleID:     styleID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.history.Create(ctx, nil, h); err != nil {
		return nil, err
	}
	return h, nil
}

// tenantStyle drops style references that do not name a style of the tenant.
func (s *historyService) tenantStyle(ctx context.Context, tenantID uuid.UUID, id *uuid.UUID) (*uuid.UUID, error) {
	if id == nil || *id == uuid.Nil {
		return nil, nil
	}
	st, err := s.styles.GetByTenant(ctx, nil, tenantID, *id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, nil
	}
	return &st.ID, nil
}

func (s *historyService) Delete(ctx context.Context, caller *Caller, id uuid.UUID) error {
	userID, err := requireUser(caller)
	if err != nil {
		return err
	}
	deleted, err := s.history.DeleteOwned(ctx, nil, caller.TenantID, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
