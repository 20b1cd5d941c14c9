package vectorcodec

import (
	"errors"
	"math"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	in := []float64{0.1, -2.5, 3e-9, 0, 1.0 / 3.0, 12345.678}
	lit, err := Encode(in, len(in))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(lit)
	if err != nil {
		t.Fatalf("Decode(%q): %v", lit, err)
	}
	if len(out) != len(in) {
		t.Fatalf("len: got=%d want=%d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("index %d: got=%v want=%v", i, out[i], in[i])
		}
	}
}

func TestEncodeLiteralShape(t *testing.T) {
	t.Parallel()
	lit, err := Encode([]float64{1, 0.5, -2}, 3)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if lit != "[1,0.5,-2]" {
		t.Fatalf("literal: got=%q want=%q", lit, "[1,0.5,-2]")
	}
}

func TestEncodeRejectsWrongDimension(t *testing.T) {
	t.Parallel()
	for _, n := range []int{0, 767, 769} {
		_, err := Encode(make([]float64, n), 768)
		if !errors.Is(err, ErrInvalidDimension) {
			t.Fatalf("len %d: err=%v want ErrInvalidDimension", n, err)
		}
	}
}

func TestEncodeRejectsNonFinite(t *testing.T) {
	t.Parallel()
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Encode([]float64{0.1, bad, 0.3}, 3)
		if !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("value %v: err=%v want ErrInvalidValue", bad, err)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()
	for _, lit := range []string{"", "1,2", "[1,x]", "[1,2"} {
		if _, err := Decode(lit); err == nil {
			t.Fatalf("Decode(%q): expected error", lit)
		}
	}
}

