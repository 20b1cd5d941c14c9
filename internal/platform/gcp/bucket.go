package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/yungbote/infographic-backend/internal/pkg/httpx"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

var ErrObjectNotFound = errors.New("storage object not found")

type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
}

// BucketService reads objects from the buckets this deployment owns.
type BucketService interface {
	// Owns reports whether rawURL addresses an object in one of the owned
	// buckets and returns the bucket and object key.
	Owns(rawURL string) (bucket, key string, ok bool)
	Download(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, *ObjectAttrs, error)
	ObjectURL(bucket, key string) string
	Close() error
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	storageMode   ObjectStorageMode
	emulatorHost  string
	buckets       map[string]struct{}
	timeout       time.Duration
}

type BucketConfig struct {
	Storage     ObjectStorageConfig
	Buckets     []string
	Timeout     time.Duration
	Credentials string
}

func NewBucketService(log *logger.Logger, cfg BucketConfig) (BucketService, error) {
	if err := ValidateObjectStorageConfig(cfg.Storage); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "BucketService")

	stClient, err := newStorageClientForMode(context.Background(), cfg.Storage, ClientOptionsFromCredentials(cfg.Credentials))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	bs := newBucketService(serviceLog, cfg)
	bs.storageClient = stClient
	serviceLog.Info("Object storage initialized",
		"mode", cfg.Storage.Mode,
		"emulator_host", cfg.Storage.EmulatorHost,
		"buckets", cfg.Buckets,
	)
	return bs, nil
}

func newBucketService(log *logger.Logger, cfg BucketConfig) *bucketService {
	buckets := make(map[string]struct{}, len(cfg.Buckets))
	for _, b := range cfg.Buckets {
		if b = strings.TrimSpace(b); b != "" {
			buckets[b] = struct{}{}
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &bucketService{
		log:          log,
		storageMode:  cfg.Storage.Mode,
		emulatorHost: strings.TrimRight(cfg.Storage.EmulatorHost, "/"),
		buckets:      buckets,
		timeout:      timeout,
	}
}

func (bs *bucketService) Close() error {
	if bs.storageClient == nil {
		return nil
	}
	return bs.storageClient.Close()
}

func (bs *bucketService) ObjectURL(bucket, key string) string {
	if bs.storageMode == ObjectStorageModeGCSEmulator && bs.emulatorHost != "" {
		return fmt.Sprintf("%s/%s/%s", bs.emulatorHost, bucket, escapeKey(key))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, escapeKey(key))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (bs *bucketService) Owns(rawURL string) (string, string, bool) {
	bucket, key, ok := ParseObjectURL(rawURL, bs.emulatorHost)
	if !ok {
		return "", "", false
	}
	if _, owned := bs.buckets[bucket]; !owned {
		return "", "", false
	}
	return bucket, key, true
}

// ParseObjectURL understands gs://bucket/key, path-style and virtual-hosted
// storage.googleapis.com URLs, and path-style emulator URLs.
func ParseObjectURL(rawURL, emulatorHost string) (bucket, key string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", "", false
	}
	host := strings.ToLower(u.Host)
	path := strings.TrimPrefix(u.Path, "/")

	switch {
	case u.Scheme == "gs":
		bucket, key = host, path
	case host == "storage.googleapis.com" || host == "storage.cloud.google.com":
		bucket, key, _ = strings.Cut(path, "/")
	case strings.HasSuffix(host, ".storage.googleapis.com"):
		bucket, key = strings.TrimSuffix(host, ".storage.googleapis.com"), path
	case emulatorHost != "" && sameHost(u, emulatorHost):
		bucket, key, _ = strings.Cut(path, "/")
	default:
		return "", "", false
	}
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func sameHost(u *url.URL, other string) bool {
	o, err := url.Parse(other)
	return err == nil && strings.EqualFold(o.Host, u.Host)
}

func (bs *bucketService) Download(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, *ObjectAttrs, error) {
	ctx, cancel := context.WithTimeout(ctx, bs.timeout)
	defer cancel()

	if bs.storageMode == ObjectStorageModeGCSEmulator {
		return bs.downloadEmulator(ctx, bucket, key, maxBytes)
	}
	if bs.storageClient == nil {
		return nil, nil, fmt.Errorf("storage client not initialized")
	}

	r, err := bs.storageClient.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	defer r.Close()

	if maxBytes > 0 && r.Attrs.Size > maxBytes {
		return nil, nil, httpx.ErrTooLarge
	}
	b, err := httpx.ReadLimited(r, maxBytes)
	if err != nil {
		return nil, nil, err
	}
	return b, &ObjectAttrs{
		Size:        r.Attrs.Size,
		ContentType: r.Attrs.ContentType,
		Updated:     r.Attrs.LastModified,
	}, nil
}

func (bs *bucketService) downloadEmulator(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, *ObjectAttrs, error) {
	mediaURL := fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", bs.emulatorHost, url.PathEscape(bucket), url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed creating emulator download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed emulator download request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil, ErrObjectNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, nil, &httpx.StatusError{Service: "gcs_emulator", StatusCode: resp.StatusCode, Body: string(body)}
	}
	b, err := httpx.ReadLimited(resp.Body, maxBytes)
	if err != nil {
		return nil, nil, err
	}
	return b, &ObjectAttrs{Size: int64(len(b)), ContentType: resp.Header.Get("Content-Type")}, nil
}

