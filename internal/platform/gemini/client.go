package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/infographic-backend/internal/pkg/httpx"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

var (
	ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")
	// ErrEmptyResponse means the provider answered 2xx without usable content.
	ErrEmptyResponse = errors.New("gemini returned no content")
)

const maxResponseBytes = 64 << 20

type Config struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	EmbedModel string
	// EmbedDim is requested as outputDimensionality; 0 leaves the model default.
	EmbedDim   int
	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://generativelanguage.googleapis.com"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TextModel == "" {
		c.TextModel = "gemini-2.5-flash"
	}
	if c.ImageModel == "" {
		c.ImageModel = "gemini-2.5-flash-image"
	}
	if c.EmbedModel == "" {
		c.EmbedModel = "gemini-embedding-001"
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = time.Second
	}
	return c
}

// Part is one piece of multimodal input: text, or inline bytes with a MIME type.
type Part struct {
	Text     string
	MimeType string
	Data     []byte
}

func TextPart(s string) Part { return Part{Text: s} }

func BlobPart(mimeType string, data []byte) Part { return Part{MimeType: mimeType, Data: data} }

type GenerationConfig struct {
	ResponseMimeType   string
	ResponseModalities []string
	AspectRatio        string
	ImageSize          string
	Temperature        *float64
}

// RawResult is the undecoded provider response body; see parse.go for the
// decoders applied to it.
type RawResult struct {
	Model string
	Body  []byte
}

// Observer receives one sample per provider call.
type Observer interface {
	ObserveAICall(operation, model, status string, d time.Duration)
}

type Client interface {
	GenerateContent(ctx context.Context, model string, parts []Part, cfg GenerationConfig) (*RawResult, error)
	// EmbedText returns nil, nil when the provider response carries no vector.
	EmbedText(ctx context.Context, model, text string) ([]float64, error)
	TextModel() string
	ImageModel() string
	EmbedModel() string
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	observer   Observer
	tracer     trace.Tracer
}

func NewClient(log *logger.Logger, cfg Config, observer Observer) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg = cfg.withDefaults()
	return &client{
		log:        log.With("service", "GeminiClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		observer:   observer,
		tracer:     otel.Tracer("infographic/gemini"),
	}, nil
}

func (c *client) TextModel() string  { return c.cfg.TextModel }
func (c *client) ImageModel() string { return c.cfg.ImageModel }
func (c *client) EmbedModel() string { return c.cfg.EmbedModel }

type wireInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type wireGenerationConfig struct {
	ResponseMimeType   string           `json:"responseMimeType,omitempty"`
	ResponseModalities []string         `json:"responseModalities,omitempty"`
	Temperature        *float64         `json:"temperature,omitempty"`
	ImageConfig        *wireImageConfig `json:"imageConfig,omitempty"`
}

type generateRequest struct {
	Contents         []wireContent         `json:"contents"`
	GenerationConfig *wireGenerationConfig `json:"generationConfig,omitempty"`
}

type embedRequest struct {
	Model                string      `json:"model"`
	Content              wireContent `json:"content"`
	OutputDimensionality int         `json:"outputDimensionality,omitempty"`
}

type embedResponse struct {
	Embedding *struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

func toWireParts(parts []Part) []wirePart {
	out := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		if len(p.Data) > 0 {
			out = append(out, wirePart{InlineData: &wireInlineData{
				MimeType: p.MimeType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		if p.Text != "" {
			out = append(out, wirePart{Text: p.Text})
		}
	}
	return out
}

func toWireConfig(cfg GenerationConfig) *wireGenerationConfig {
	w := &wireGenerationConfig{
		ResponseMimeType:   cfg.ResponseMimeType,
		ResponseModalities: cfg.ResponseModalities,
		Temperature:        cfg.Temperature,
	}
	if cfg.AspectRatio != "" || cfg.ImageSize != "" {
		w.ImageConfig = &wireImageConfig{AspectRatio: cfg.AspectRatio, ImageSize: cfg.ImageSize}
	}
	if w.ResponseMimeType == "" && len(w.ResponseModalities) == 0 && w.Temperature == nil && w.ImageConfig == nil {
		return nil
	}
	return w
}

func (c *client) GenerateContent(ctx context.Context, model string, parts []Part, cfg GenerationConfig) (*RawResult, error) {
	if model == "" {
		model = c.cfg.TextModel
	}
	wp := toWireParts(parts)
	if len(wp) == 0 {
		return nil, fmt.Errorf("gemini: no input parts")
	}
	req := generateRequest{
		Contents:         []wireContent{{Role: "user", Parts: wp}},
		GenerationConfig: toWireConfig(cfg),
	}
	raw, err := c.call(ctx, "generateContent", model, req)
	if err != nil {
		return nil, err
	}
	return &RawResult{Model: model, Body: raw}, nil
}

func (c *client) EmbedText(ctx context.Context, model, text string) ([]float64, error) {
	if model == "" {
		model = c.cfg.EmbedModel
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini: empty embedding input")
	}
	req := embedRequest{
		Model:                "models/" + model,
		Content:              wireContent{Parts: []wirePart{{Text: text}}},
		OutputDimensionality: c.cfg.EmbedDim,
	}
	raw, err := c.call(ctx, "embedContent", model, req)
	if err != nil {
		return nil, err
	}
	var resp embedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("gemini embed decode: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, nil
	}
	return resp.Embedding.Values, nil
}

func (c *client) endpoint(model, method string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:%s", c.cfg.BaseURL, url.PathEscape(model), method)
}

func (c *client) call(ctx context.Context, method, model string, body any) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "gemini."+method, trace.WithAttributes(
		attribute.String("gemini.model", model),
	))
	defer span.End()

	start := time.Now()
	raw, status, err := c.doWithRetry(ctx, method, model, body)
	if c.observer != nil {
		c.observer.ObserveAICall(method, model, status, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gemini call failed")
		return nil, err
	}
	return raw, nil
}

func (c *client) doOnce(ctx context.Context, method, model string, payload []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model, method), bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := httpx.ReadLimited(resp.Body, maxResponseBytes)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpx.StatusError{Service: "gemini", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) doWithRetry(ctx context.Context, method, model string, body any) ([]byte, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "encode_error", err
	}
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, "canceled", ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, method, model, payload)
		if err == nil {
			return raw, strconv.Itoa(resp.StatusCode), nil
		}
		status := statusLabel(resp, err)
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, status, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, httpx.Backoff(attempt, c.cfg.RetryBase, 10*time.Second), 10*time.Second)
		c.log.Warn("Gemini request retrying",
			"method", method,
			"model", model,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, "canceled", err
		}
	}
	return nil, "error", fmt.Errorf("unreachable retry loop")
}

func statusLabel(resp *http.Response, err error) string {
	if resp != nil {
		return strconv.Itoa(resp.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return "truncated"
	}
	return "error"
}
