package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/payload"
	"github.com/yungbote/infographic-backend/internal/pkg/pointers"
	"github.com/yungbote/infographic-backend/internal/platform/gemini"
)

const secondsPerScene = 15

var analyzableContentTypes = map[string]string{
	payload.PDF:      payload.PDF,
	payload.Text:     payload.Text,
	payload.Markdown: payload.Text,
	payload.PNG:      payload.PNG,
	payload.JPEG:     payload.JPEG,
	payload.WebP:     payload.WebP,
}

type Scene struct {
	SceneNumber  int      `json:"scene_number"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	VisualPrompt string   `json:"visual_prompt"`
	Characters   []string `json:"characters"`
}

type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Appearance  string `json:"appearance"`
}

type DocumentAnalysis struct {
	Title                   string      `json:"title"`
	Summary                 string      `json:"summary"`
	ContentType             string      `json:"content_type"`
	PageCount               int         `json:"page_count"`
	Scenes                  []Scene     `json:"scenes"`
	Characters              []Character `json:"characters"`
	TotalScenes             int         `json:"total_scenes"`
	EstimatedGenerationTime string      `json:"estimated_generation_time"`
}

type DocumentAnalysisService interface {
	Analyze(ctx context.Context, src MediaSource) (*DocumentAnalysis, error)
}

type documentAnalysisService struct {
	log    *logger.Logger
	ai     gemini.Client
	loader MediaLoader
}

func NewDocumentAnalysisService(log *logger.Logger, ai gemini.Client, loader MediaLoader) DocumentAnalysisService {
	return &documentAnalysisService{
		log:    log.With("service", "DocumentAnalysisService"),
		ai:     ai,
		loader: loader,
	}
}

func (s *documentAnalysisService) Analyze(ctx context.Context, src MediaSource) (*DocumentAnalysis, error) {
	blob, err := s.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	wireType, ok := analyzableContentTypes[blob.ContentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, blob.ContentType)
	}

	start := time.Now()
	raw, err := s.ai.GenerateContent(ctx, s.ai.TextModel(), []gemini.Part{
		gemini.BlobPart(wireType, blob.Data),
		gemini.TextPart(documentAnalysisInstruction(src.FileName)),
	}, gemini.GenerationConfig{
		ResponseMimeType: "application/json",
		Temperature:      pointers.Float64(0.2),
	})
	if err != nil {
		return nil, err
	}
	obj, err := gemini.ParseStructuredResponse(raw)
	if err != nil {
		s.log.Warn("document analysis response unparsable", "model", raw.Model, "error", err)
		return nil, err
	}

	out := normalizeDocumentAnalysis(obj, src.FileName)
	s.log.Info("Document analyzed",
		"content_type", blob.ContentType,
		"bytes", len(blob.Data),
		"scenes", out.TotalScenes,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// normalizeDocumentAnalysis never fails: every missing or mistyped field
// falls back to a usable default.
func normalizeDocumentAnalysis(obj map[string]any, fileName string) *DocumentAnalysis {
	out := &DocumentAnalysis{
		Title:       stringField(obj, "title"),
		Summary:     stringField(obj, "summary"),
		ContentType: stringField(obj, "content_type"),
		PageCount:   intField(obj, "page_count"),
		Scenes:      []Scene{},
		Characters:  []Character{},
	}
	if out.Title == "" {
		out.Title = firstNonEmpty(strings.TrimSuffix(fileName, pathExt(fileName)), "Untitled document")
	}
	if out.ContentType == "" {
		out.ContentType = "document"
	}
	if out.PageCount <= 0 {
		out.PageCount = 1
	}

	for i, item := range arrayField(obj, "scenes") {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sc := Scene{
			SceneNumber:  intField(m, "scene_number"),
			Title:        stringField(m, "title"),
			Description:  stringField(m, "description"),
			VisualPrompt: stringField(m, "visual_prompt"),
			Characters:   stringSlice(arrayField(m, "characters")),
		}
		if sc.SceneNumber <= 0 {
			sc.SceneNumber = i + 1
		}
		if sc.Title == "" {
			sc.Title = fmt.Sprintf("Scene %d", sc.SceneNumber)
		}
		if sc.VisualPrompt == "" {
			sc.VisualPrompt = firstNonEmpty(sc.Description, sc.Title)
		}
		out.Scenes = append(out.Scenes, sc)
	}

	for _, item := range arrayField(obj, "characters") {
		switch v := item.(type) {
		case map[string]any:
			if name := stringField(v, "name"); name != "" {
				out.Characters = append(out.Characters, Character{
					Name:        name,
					Description: stringField(v, "description"),
					Appearance:  stringField(v, "appearance"),
				})
			}
		case string:
			if name := strings.TrimSpace(v); name != "" {
				out.Characters = append(out.Characters, Character{Name: name})
			}
		}
	}

	out.TotalScenes = len(out.Scenes)
	out.EstimatedGenerationTime = humanDuration(time.Duration(out.TotalScenes*secondsPerScene) * time.Second)
	return out
}

func humanDuration(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 60 {
		return fmt.Sprintf("%d seconds", secs)
	}
	m, s := secs/60, secs%60
	unit := "minutes"
	if m == 1 {
		unit = "minute"
	}
	if s == 0 {
		return fmt.Sprintf("%d %s", m, unit)
	}
	return fmt.Sprintf("%d %s %d seconds", m, unit, s)
}

func pathExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 && !strings.ContainsAny(name[i:], "/\\") {
		return name[i:]
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%g", v)
	}
	return ""
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
			return n
		}
	}
	return 0
}

func arrayField(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

func stringSlice(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
