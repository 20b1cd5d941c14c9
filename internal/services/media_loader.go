package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/yungbote/infographic-backend/internal/pkg/httpx"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/payload"
	"github.com/yungbote/infographic-backend/internal/platform/gcp"
)

const defaultMaxFetchBytes = 20 << 20

// MediaSource is caller-supplied content: inline base64/data URL, or a URL.
// Inline content wins when both are set.
type MediaSource struct {
	Inline      string
	URL         string
	FileName    string
	ContentType string
}

func (s MediaSource) empty() bool {
	return strings.TrimSpace(s.Inline) == "" && strings.TrimSpace(s.URL) == ""
}

type MediaLoader interface {
	Load(ctx context.Context, src MediaSource) (*payload.Blob, error)
}

type MediaLoaderConfig struct {
	MaxBytes     int64
	Timeout      time.Duration
	AllowPrivate bool
}

type mediaLoader struct {
	log        *logger.Logger
	buckets    gcp.BucketService
	httpClient *http.Client
	maxBytes   int64
}

// NewMediaLoader fetches own-bucket URLs through buckets (may be nil) and
// everything else over plain HTTP.
func NewMediaLoader(log *logger.Logger, buckets gcp.BucketService, cfg MediaLoaderConfig) MediaLoader {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxFetchBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if !cfg.AllowPrivate {
		dialer.Control = rejectPrivateAddress
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil

	return &mediaLoader{
		log:        log.With("service", "MediaLoader"),
		buckets:    buckets,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		maxBytes:   cfg.MaxBytes,
	}
}

func (m *mediaLoader) Load(ctx context.Context, src MediaSource) (*payload.Blob, error) {
	if src.empty() {
		return nil, fmt.Errorf("%w: no content supplied", ErrInvalidArgument)
	}
	if strings.TrimSpace(src.Inline) != "" {
		return m.loadInline(src)
	}
	return m.loadURL(ctx, src)
}

func (m *mediaLoader) loadInline(src MediaSource) (*payload.Blob, error) {
	b, err := payload.Decode(src.Inline)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if int64(len(b.Data)) > m.maxBytes {
		return nil, ErrPayloadTooLarge
	}
	b.ContentType = payload.Resolve(firstNonEmpty(src.ContentType, b.ContentType), src.FileName, b.Data)
	return b, nil
}

func (m *mediaLoader) loadURL(ctx context.Context, src MediaSource) (*payload.Blob, error) {
	raw := strings.TrimSpace(src.URL)
	if payload.IsDataURL(raw) {
		return m.loadInline(MediaSource{Inline: raw, FileName: src.FileName, ContentType: src.ContentType})
	}

	if m.buckets != nil {
		if bucket, key, ok := m.buckets.Owns(raw); ok {
			data, attrs, err := m.buckets.Download(ctx, bucket, key, m.maxBytes)
			if err != nil {
				return nil, m.fetchErr(raw, err)
			}
			declared := src.ContentType
			if declared == "" && attrs != nil {
				declared = attrs.ContentType
			}
			return &payload.Blob{
				Data:        data,
				ContentType: payload.Resolve(declared, firstNonEmpty(src.FileName, key), data),
			}, nil
		}
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be http(s)", ErrInvalidArgument)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, m.fetchErr(raw, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, m.fetchErr(raw, &httpx.StatusError{Service: "fetch", StatusCode: resp.StatusCode, Body: string(body)})
	}
	if resp.ContentLength > m.maxBytes {
		return nil, ErrPayloadTooLarge
	}
	data, err := httpx.ReadLimited(resp.Body, m.maxBytes)
	if err != nil {
		return nil, m.fetchErr(raw, err)
	}
	declared := src.ContentType
	if declared == "" {
		declared = resp.Header.Get("Content-Type")
	}
	return &payload.Blob{
		Data:        data,
		ContentType: payload.Resolve(declared, firstNonEmpty(src.FileName, u.Path), data),
	}, nil
}

func (m *mediaLoader) fetchErr(rawURL string, err error) error {
	if errors.Is(err, httpx.ErrTooLarge) {
		return ErrPayloadTooLarge
	}
	m.log.Warn("remote content fetch failed", "url", redactQuery(rawURL), "error", err)
	// Callers only learn the upstream status; transport detail stays in the log.
	var se *httpx.StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: upstream status %d", ErrFetchFailed, se.StatusCode)
	}
	return ErrFetchFailed
}

func redactQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

func rejectPrivateAddress(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("unresolved address %q", host)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("address %s is not publicly routable", ip)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
