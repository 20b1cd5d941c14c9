package gemini

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparsableAIResponse means no decoding strategy produced a JSON object.
var ErrUnparsableAIResponse = errors.New("unparsable AI response")

type respInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type respPart struct {
	Text       string          `json:"text"`
	Thought    bool            `json:"thought"`
	InlineData *respInlineData `json:"inlineData"`
}

type generateResponse struct {
	// Text is set by proxies and SDK-style gateways that flatten the answer.
	Text       string `json:"text"`
	Candidates []struct {
		Content struct {
			Parts []respPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type textStrategy struct {
	name    string
	extract func(generateResponse) string
}

// textStrategies are tried in order; the first non-empty text wins.
var textStrategies = []textStrategy{
	{name: "text_field", extract: func(r generateResponse) string { return r.Text }},
	{name: "candidate_parts", extract: candidateText},
}

func candidateText(r generateResponse) string {
	for _, cand := range r.Candidates {
		var b strings.Builder
		for _, p := range cand.Content.Parts {
			if p.Thought || p.Text == "" {
				continue
			}
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func decodeResponse(raw *RawResult) (generateResponse, error) {
	var resp generateResponse
	if raw == nil || len(raw.Body) == 0 {
		return resp, ErrEmptyResponse
	}
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return resp, fmt.Errorf("%w: envelope: %v", ErrUnparsableAIResponse, err)
	}
	return resp, nil
}

// ExtractText returns the answer text using the first strategy that yields one.
func ExtractText(raw *RawResult) (string, error) {
	resp, err := decodeResponse(raw)
	if err != nil {
		return "", err
	}
	for _, s := range textStrategies {
		if text := strings.TrimSpace(s.extract(resp)); text != "" {
			return text, nil
		}
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
	}
	return "", ErrEmptyResponse
}

// ParseStructuredResponse extracts the answer text and decodes it as a JSON
// object.
func ParseStructuredResponse(raw *RawResult) (map[string]any, error) {
	text, err := ExtractText(raw)
	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return nil, fmt.Errorf("%w: %v", ErrUnparsableAIResponse, err)
		}
		return nil, err
	}
	return ParseStructuredText(text)
}

// ParseStructuredText decodes text as a JSON object, first as a whole and then
// by scanning for the first balanced {...} block that decodes. Models often
// wrap JSON in prose or markdown fences.
func ParseStructuredText(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	var out map[string]any
	if err := json.Unmarshal([]byte(trimmed), &out); err == nil && out != nil {
		return out, nil
	}
	for start := strings.IndexByte(trimmed, '{'); start >= 0; {
		end := matchBrace(trimmed, start)
		if end < 0 {
			break
		}
		var candidate map[string]any
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &candidate); err == nil && candidate != nil {
			return candidate, nil
		}
		next := strings.IndexByte(trimmed[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, ErrUnparsableAIResponse
}

// matchBrace returns the index of the brace closing the one at open,
// skipping braces inside string literals, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

type InlineData struct {
	MimeType string
	Data     []byte
}

// DataURL renders the payload as a data: URL.
func (d InlineData) DataURL() string {
	mt := d.MimeType
	if mt == "" {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// InlineImages returns every inline binary part of the first candidate that
// has any.
func InlineImages(raw *RawResult) ([]InlineData, error) {
	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		var out []InlineData
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			b, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini inline data: %w", err)
			}
			out = append(out, InlineData{MimeType: p.InlineData.MimeType, Data: b})
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, ErrEmptyResponse
}
