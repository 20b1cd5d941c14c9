package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/payload"
	"github.com/yungbote/infographic-backend/internal/platform/gemini"
)

const (
	DefaultAspectRatio = "16:9"
	DefaultImageSize   = "1K"
)

var (
	aspectRatios = map[string]struct{}{
		"1:1": {}, "2:3": {}, "3:2": {}, "3:4": {}, "4:3": {},
		"4:5": {}, "5:4": {}, "9:16": {}, "16:9": {}, "21:9": {},
	}
	imageSizes = map[string]struct{}{"1K": {}, "2K": {}, "4K": {}}
)

type GenerateImageRequest struct {
	Prompt      string
	AspectRatio string
	ImageSize   string
	// ReferenceImage is an optional data URL, base64 payload or URL.
	ReferenceImage string
	UserScript     string
	StylePrompt    string
	StyleID        *uuid.UUID
}

type GeneratedImage struct {
	ImageURL    string     `json:"imageUrl"`
	AspectRatio string     `json:"aspectRatio"`
	ImageSize   string     `json:"imageSize"`
	Prompt      string     `json:"prompt"`
	HistoryID   *uuid.UUID `json:"historyId,omitempty"`
}

type ImageGenerationService interface {
	Generate(ctx context.Context, caller *Caller, req GenerateImageRequest) (*GeneratedImage, error)
}

type imageGenerationService struct {
	log     *logger.Logger
	ai      gemini.Client
	loader  MediaLoader
	history HistoryService
}

func NewImageGenerationService(log *logger.Logger, ai gemini.Client, loader MediaLoader, history HistoryService) ImageGenerationService {
	return &imageGenerationService{
		log:     log.With("service", "ImageGenerationService"),
		ai:      ai,
		loader:  loader,
		history: history,
	}
}

// NormalizeAspectRatio returns the default for empty input and an
// ErrInvalidArgument for unknown ratios.
func NormalizeAspectRatio(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultAspectRatio, nil
	}
	if _, ok := aspectRatios[v]; !ok {
		return "", fmt.Errorf("%w: unsupported aspectRatio %q", ErrInvalidArgument, v)
	}
	return v, nil
}

func NormalizeImageSize(v string) (string, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return DefaultImageSize, nil
	}
	if _, ok := imageSizes[v]; !ok {
		return "", fmt.Errorf("%w: unsupported imageSize %q", ErrInvalidArgument, v)
	}
	return v, nil
}

func (s *imageGenerationService) Generate(ctx context.Context, caller *Caller, req GenerateImageRequest) (*GeneratedImage, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidArgument)
	}
	aspect, err := NormalizeAspectRatio(req.AspectRatio)
	if err != nil {
		return nil, err
	}
	size, err := NormalizeImageSize(req.ImageSize)
	if err != nil {
		return nil, err
	}

	var parts []gemini.Part
	hasRef := strings.TrimSpace(req.ReferenceImage) != ""
	if hasRef {
		ref, err := s.loader.Load(ctx, referenceSource(req.ReferenceImage))
		if err != nil {
			return nil, err
		}
		if _, ok := styleImageTypes[ref.ContentType]; !ok {
			return nil, fmt.Errorf("%w: reference image type %q", ErrUnsupportedFormat, ref.ContentType)
		}
		parts = append(parts, gemini.BlobPart(ref.ContentType, ref.Data))
	}
	finalPrompt := composeImagePrompt(req.Prompt, req.StylePrompt, hasRef)
	parts = append(parts, gemini.TextPart(finalPrompt))

	raw, err := s.ai.GenerateContent(ctx, s.ai.ImageModel(), parts, gemini.GenerationConfig{
		ResponseModalities: []string{"IMAGE"},
		AspectRatio:        aspect,
		ImageSize:          size,
	})
	if err != nil {
		return nil, err
	}
	images, err := gemini.InlineImages(raw)
	if err != nil {
		return nil, err
	}

	out := &GeneratedImage{
		ImageURL:    images[0].DataURL(),
		AspectRatio: aspect,
		ImageSize:   size,
		Prompt:      finalPrompt,
	}

	if caller != nil && caller.UserID != nil && s.history != nil {
		h, err := s.history.Create(ctx, caller, HistoryInput{
			Prompt:      finalPrompt,
			ImageURL:    out.ImageURL,
			UserScript:  req.UserScript,
			StylePrompt: req.StylePrompt,
			StyleID:     req.StyleID,
		})
		if err != nil {
			s.log.Warn("history record failed; returning image anyway", "error", err)
		} else {
			out.HistoryID = &h.ID
		}
	}
	return out, nil
}

func referenceSource(ref string) MediaSource {
	ref = strings.TrimSpace(ref)
	if payload.IsDataURL(ref) || !strings.Contains(ref, "://") {
		return MediaSource{Inline: ref}
	}
	return MediaSource{URL: ref}
}
