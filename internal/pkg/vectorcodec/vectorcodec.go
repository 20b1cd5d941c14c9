// Package vectorcodec converts embeddings to and from the textual literal
// accepted by pgvector columns ("[0.1,0.2,...]"). Every write of an
// embedding and every similarity query goes through Encode so malformed
// vectors never reach the store.
package vectorcodec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidDimension = errors.New("invalid embedding dimension")
	ErrInvalidValue     = errors.New("invalid embedding value")
	ErrMalformedLiteral = errors.New("malformed vector literal")
)

// Encode validates values against expectedDim and renders the literal.
func Encode(values []float64, expectedDim int) (string, error) {
	if expectedDim <= 0 || len(values) != expectedDim {
		return "", fmt.Errorf("%w: got %d want %d", ErrInvalidDimension, len(values), expectedDim)
	}
	var b strings.Builder
	b.Grow(len(values) * 10)
	b.WriteByte('[')
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("%w at index %d", ErrInvalidValue, i)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String(), nil
}

// Decode parses a literal produced by Encode (or by pgvector itself).
func Decode(literal string) ([]float64, error) {
	s := strings.TrimSpace(literal)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, ErrMalformedLiteral
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float64{}, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float64, 0, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrMalformedLiteral, i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w at index %d", ErrInvalidValue, i)
		}
		out = append(out, v)
	}
	return out, nil
}
