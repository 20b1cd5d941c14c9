package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestThumbnailDownscalesKeepingAspect(t *testing.T) {
	out, err := Thumbnail(pngBytes(t, 400, 200), ThumbnailOptions{MaxSide: 100})
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not jpeg: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("got %dx%d, want 100x50", cfg.Width, cfg.Height)
	}
}

func TestThumbnailKeepsSmallImages(t *testing.T) {
	out, err := Thumbnail(pngBytes(t, 30, 60), ThumbnailOptions{})
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 30 || cfg.Height != 60 {
		t.Fatalf("got %dx%d, want 30x60", cfg.Width, cfg.Height)
	}
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	if _, err := Thumbnail([]byte("not an image"), ThumbnailOptions{}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestThumbnailDataURL(t *testing.T) {
	u, err := ThumbnailDataURL(pngBytes(t, 10, 10), ThumbnailOptions{})
	if err != nil {
		t.Fatalf("ThumbnailDataURL: %v", err)
	}
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(u, prefix) {
		t.Fatalf("unexpected prefix: %q", u[:32])
	}
	if _, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(u, prefix)); err != nil {
		t.Fatalf("payload not base64: %v", err)
	}
}

func TestFitWithin(t *testing.T) {
	cases := [][5]int{
		{1000, 10, 100, 100, 1},
		{10, 1000, 100, 1, 100},
		{0, 10, 100, 0, 0},
	}
	for _, c := range cases {
		w, h := fitWithin(c[0], c[1], c[2])
		if w != c[3] || h != c[4] {
			t.Errorf("fitWithin(%d,%d,%d) = %d,%d", c[0], c[1], c[2], w, h)
		}
	}
}
