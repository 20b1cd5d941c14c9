// Package payload normalizes caller-supplied binary content: raw base64,
// data URLs and content-type detection.
package payload

import (
	"encoding/base64"
	"errors"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrInvalidEncoding = errors.New("payload is not valid base64")

const (
	PNG      = "image/png"
	JPEG     = "image/jpeg"
	WebP     = "image/webp"
	GIF      = "image/gif"
	PDF      = "application/pdf"
	Text     = "text/plain"
	Markdown = "text/markdown"
	DOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var byExtension = map[string]string{
	".png":      PNG,
	".jpg":      JPEG,
	".jpeg":     JPEG,
	".webp":     WebP,
	".gif":      GIF,
	".pdf":      PDF,
	".txt":      Text,
	".text":     Text,
	".md":       Markdown,
	".markdown": Markdown,
	".docx":     DOCX,
}

// Blob is decoded content with its best-known content type.
type Blob struct {
	Data        []byte
	ContentType string
}

// Normalize lower-cases a media type and drops its parameters.
func Normalize(contentType string) string {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return strings.ToLower(mt)
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// FromExtension maps a file name or URL path to a known content type.
func FromExtension(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return byExtension[strings.ToLower(path.Ext(name))]
}

// Sniff detects the content type from the leading bytes.
func Sniff(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	m := mimetype.Detect(data)
	if m == nil {
		return ""
	}
	ct := Normalize(m.String())
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

// Resolve picks the first usable content type: declared, then by file
// name, then sniffed. Generic octet-stream declarations are ignored.
func Resolve(declared, fileName string, data []byte) string {
	if ct := Normalize(declared); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := FromExtension(fileName); ct != "" {
		return ct
	}
	return Sniff(data)
}

// IsDataURL reports whether s looks like data:<type>;base64,<payload>.
func IsDataURL(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "data:")
}

// Decode accepts either a data URL or bare base64 (standard or URL-safe,
// padded or not).
func Decode(s string) (*Blob, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidEncoding
	}
	contentType := ""
	if IsDataURL(s) {
		header, body, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return nil, ErrInvalidEncoding
		}
		mediaType, isBase64 := strings.CutSuffix(header, ";base64")
		if !isBase64 {
			return nil, ErrInvalidEncoding
		}
		contentType = Normalize(mediaType)
		s = body
	}
	data, err := decodeBase64(s)
	if err != nil {
		return nil, err
	}
	return &Blob{Data: data, ContentType: contentType}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil && len(b) > 0 {
			return b, nil
		}
	}
	return nil, ErrInvalidEncoding
}

// DataURL encodes data as a base64 data URL.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
