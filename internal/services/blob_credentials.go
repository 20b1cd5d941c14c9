package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/payload"
	"github.com/yungbote/infographic-backend/internal/platform/gcp"
)

const (
	blobCredentialTTL = 15 * time.Minute
	blobClockSkew     = 5 * time.Minute
	maxBlobNameLength = 200
)

var uploadContentTypes = map[string]struct{}{
	payload.PNG:      {},
	payload.JPEG:     {},
	payload.WebP:     {},
	payload.GIF:      {},
	payload.PDF:      {},
	payload.Text:     {},
	payload.Markdown: {},
	payload.DOCX:     {},
}

// BlobCredential is a write grant for exactly one object plus a read URL
// for the same object.
//
// StartsAt is informational. V4 signed URLs are valid from SignedAt (the
// signing time chosen by the storage SDK) until ExpiresAt; StartsAt is
// SignedAt minus the clock skew clients should tolerate when checking it
// against their own clock.
type BlobCredential struct {
	BlobURL   string    `json:"blobUrl"`
	Token     string    `json:"sasToken"`
	ReadURL   string    `json:"readUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
	StartsAt  time.Time `json:"startsAt"`
	SignedAt  time.Time `json:"signedAt"`
	BlobName  string    `json:"blobName"`
	Container string    `json:"container"`
}

type BlobCredentialService interface {
	Issue(blobName, contentType, container string) (*BlobCredential, error)
}

type BlobCredentialConfig struct {
	DefaultContainer  string
	AllowedContainers []string
}

type blobCredentialService struct {
	log              *logger.Logger
	signer           gcp.URLSigner
	defaultContainer string
	allowed          map[string]struct{}
	now              func() time.Time
}

// NewBlobCredentialService accepts a nil signer; Issue then reports
// ErrStorageConfigMissing.
func NewBlobCredentialService(log *logger.Logger, signer gcp.URLSigner, cfg BlobCredentialConfig) BlobCredentialService {
	allowed := map[string]struct{}{}
	def := strings.TrimSpace(cfg.DefaultContainer)
	if def != "" {
		allowed[def] = struct{}{}
	}
	for _, c := range cfg.AllowedContainers {
		if c = strings.TrimSpace(c); c != "" {
			allowed[c] = struct{}{}
		}
	}
	return &blobCredentialService{
		log:              log.With("service", "BlobCredentialService"),
		signer:           signer,
		defaultContainer: def,
		allowed:          allowed,
		now:              time.Now,
	}
}

func (s *blobCredentialService) Issue(blobName, contentType, container string) (*BlobCredential, error) {
	name := strings.TrimSpace(blobName)
	if err := ValidateBlobName(name); err != nil {
		return nil, err
	}
	ct, err := resolveUploadContentType(contentType, name)
	if err != nil {
		return nil, err
	}

	if s.signer == nil || s.defaultContainer == "" {
		return nil, ErrStorageConfigMissing
	}
	container = strings.TrimSpace(container)
	if container == "" {
		container = s.defaultContainer
	}
	if _, ok := s.allowed[container]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContainer, container)
	}

	issued := s.now().UTC()
	expires := issued.Add(blobCredentialTTL)

	putURL, err := s.signer.SignedPutURL(container, name, ct, expires)
	if err != nil {
		return nil, err
	}
	readURL, err := s.signer.SignedGetURL(container, name, expires)
	if err != nil {
		return nil, err
	}

	blobURL, token, _ := strings.Cut(putURL, "?")
	s.log.Info("Issued upload credential", "container", container, "blob", name, "content_type", ct)
	return &BlobCredential{
		BlobURL:   blobURL,
		Token:     token,
		ReadURL:   readURL,
		ExpiresAt: expires,
		StartsAt:  issued.Add(-blobClockSkew),
		SignedAt:  issued,
		BlobName:  name,
		Container: container,
	}, nil
}

// ValidateBlobName rejects names that could escape the object namespace.
func ValidateBlobName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidBlobName)
	case len(name) > maxBlobNameLength:
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidBlobName, maxBlobNameLength)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: path traversal", ErrInvalidBlobName)
	case strings.Contains(name, `\`):
		return fmt.Errorf("%w: backslash", ErrInvalidBlobName)
	case strings.HasPrefix(name, "/"):
		return fmt.Errorf("%w: leading slash", ErrInvalidBlobName)
	}
	return nil
}

func resolveUploadContentType(declared, name string) (string, error) {
	if ct := payload.Normalize(declared); ct != "" {
		if _, ok := uploadContentTypes[ct]; ok {
			return ct, nil
		}
	}
	if ct := payload.FromExtension(name); ct != "" {
		if _, ok := uploadContentTypes[ct]; ok {
			return ct, nil
		}
	}
	return "", fmt.Errorf("%w: cannot determine upload content type for %q", ErrUnsupportedFormat, name)
}
