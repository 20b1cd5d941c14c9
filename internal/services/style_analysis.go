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
	"github.com/yungbote/infographic-backend/internal/pkg/payload"
	"github.com/yungbote/infographic-backend/internal/pkg/pointers"
	"github.com/yungbote/infographic-backend/internal/platform/gemini"
	"github.com/yungbote/infographic-backend/internal/platform/imaging"
)

// EmbeddingStatus is reported beside the persisted style; the style row is
// saved whatever the embedding outcome.
type EmbeddingStatus string

const (
	EmbeddingPresent EmbeddingStatus = "present"
	EmbeddingAbsent  EmbeddingStatus = "absent"
	EmbeddingFailed  EmbeddingStatus = "failed"
)

var styleImageTypes = map[string]struct{}{
	payload.PNG:  {},
	payload.JPEG: {},
	payload.WebP: {},
}

type StyleAnalysisRequest struct {
	Preview  string
	ImageURL string
	Name     string
}

type StyleAnalysis struct {
	StylePrompt        string          `json:"style_prompt"`
	StyleDescriptionZh string          `json:"style_description_zh"`
	ImageContent       string          `json:"image_content"`
	SuggestedTags      []string        `json:"suggested_tags"`
	Embedding          []float64       `json:"embedding"`
	EmbeddingStatus    EmbeddingStatus `json:"embedding_status"`
	EmbeddingError     *string         `json:"embedding_error"`
	StyleID            uuid.UUID       `json:"styleId"`

	EmbeddingCause error `json:"-"`
}

type StyleAnalysisService interface {
	Analyze(ctx context.Context, caller *Caller, req StyleAnalysisRequest) (*StyleAnalysis, error)
}

type styleAnalysisService struct {
	log        *logger.Logger
	ai         gemini.Client
	loader     MediaLoader
	embeddings EmbeddingService
	styles     repos.StyleRepo
}

func NewStyleAnalysisService(log *logger.Logger, ai gemini.Client, loader MediaLoader, embeddings EmbeddingService, styles repos.StyleRepo) StyleAnalysisService {
	return &styleAnalysisService{
		log:        log.With("service", "StyleAnalysisService"),
		ai:         ai,
		loader:     loader,
		embeddings: embeddings,
		styles:     styles,
	}
}

func (s *styleAnalysisService) Analyze(ctx context.Context, caller *Caller, req StyleAnalysisRequest) (*StyleAnalysis, error) {
	if caller == nil || caller.UserID == nil {
		return nil, ErrNoCaller
	}
	blob, err := s.loader.Load(ctx, MediaSource{Inline: req.Preview, URL: req.ImageURL})
	if err != nil {
		return nil, err
	}
	if _, ok := styleImageTypes[blob.ContentType]; !ok {
		return nil, fmt.Errorf("%w: %q is not a supported image type", ErrUnsupportedFormat, blob.ContentType)
	}

	raw, err := s.ai.GenerateContent(ctx, s.ai.TextModel(), []gemini.Part{
		gemini.BlobPart(blob.ContentType, blob.Data),
		gemini.TextPart(styleAnalysisInstruction(req.Name)),
	}, gemini.GenerationConfig{
		ResponseMimeType: "application/json",
		Temperature:      pointers.Float64(0.2),
	})
	if err != nil {
		return nil, err
	}
	obj, err := gemini.ParseStructuredResponse(raw)
	if err != nil {
		s.log.Warn("style analysis response unparsable", "model", raw.Model, "error", err)
		return nil, err
	}

	out := &StyleAnalysis{
		StylePrompt:        stringField(obj, "style_prompt"),
		StyleDescriptionZh: stringField(obj, "style_description_zh"),
		ImageContent:       stringField(obj, "image_content"),
		SuggestedTags:      normalizeTags(stringSlice(arrayField(obj, "suggested_tags"))),
		EmbeddingStatus:    EmbeddingAbsent,
	}
	if out.StylePrompt == "" {
		return nil, fmt.Errorf("%w: style_prompt missing", gemini.ErrUnparsableAIResponse)
	}

	var literal *string
	emb, err := s.embeddings.Embed(ctx, out.StylePrompt)
	switch {
	case err == nil:
		out.Embedding = emb.Values
		out.EmbeddingStatus = EmbeddingPresent
		literal = &emb.Literal
	case errors.Is(err, ErrEmbeddingUnavailable):
		out.EmbeddingStatus = EmbeddingAbsent
	default:
		s.log.Warn("style embedding failed; saving without embedding", "error", err)
		out.EmbeddingStatus = EmbeddingFailed
		out.EmbeddingError = pointers.String(embeddingFailureReason(err))
		out.EmbeddingCause = err
	}

	style := &types.Style{
		ID:          uuid.New(),
		TenantID:    caller.TenantID,
		CreatedBy:   *caller.UserID,
		Name:        firstNonEmpty(req.Name, defaultStyleName(out.SuggestedTags)),
		Prompt:      out.StylePrompt,
		Description: out.StyleDescriptionZh,
		Tags:        out.SuggestedTags,
		PreviewURL:  s.previewURL(req, blob),
		Embedding:   literal,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.styles.Create(ctx, nil, style); err != nil {
		return nil, fmt.Errorf("persist style: %w", err)
	}
	out.StyleID = style.ID
	s.log.Info("Style analyzed", "style_id", style.ID, "embedding_status", out.EmbeddingStatus)
	return out, nil
}

// previewURL keeps remote URLs as-is and shrinks inline previews.
func (s *styleAnalysisService) previewURL(req StyleAnalysisRequest, blob *payload.Blob) string {
	if strings.TrimSpace(req.Preview) == "" {
		if u := strings.TrimSpace(req.ImageURL); !payload.IsDataURL(u) {
			return u
		}
	}
	thumb, err := imaging.ThumbnailDataURL(blob.Data, imaging.ThumbnailOptions{})
	if err != nil {
		s.log.Warn("preview thumbnail failed", "error", err)
		return ""
	}
	return thumb
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func defaultStyleName(tags []string) string {
	if len(tags) == 0 {
		return "Untitled style"
	}
	n := len(tags)
	if n > 3 {
		n = 3
	}
	return strings.Join(tags[:n], " / ")
}
