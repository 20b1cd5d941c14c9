package gemini

import (
	"encoding/base64"
	"errors"
	"testing"
)

func raw(body string) *RawResult { return &RawResult{Body: []byte(body)} }

func TestParseStructuredResponseWithPrefixNoise(t *testing.T) {
	t.Parallel()
	body := `{"candidates":[{"content":{"parts":[{"text":"Sure! Here you go:\n{\"title\":\"Water cycle\",\"page_count\":3}\nHope it helps."}]}}]}`
	got, err := ParseStructuredResponse(raw(body))
	if err != nil {
		t.Fatalf("ParseStructuredResponse: %v", err)
	}
	if got["title"] != "Water cycle" {
		t.Fatalf("title: got=%v", got["title"])
	}
	if got["page_count"] != float64(3) {
		t.Fatalf("page_count: got=%v", got["page_count"])
	}
}

func TestParseStructuredResponseMarkdownFence(t *testing.T) {
	t.Parallel()
	body := `{"candidates":[{"content":{"parts":[{"text":"` + "```json\\n{\\\"style_prompt\\\":\\\"flat pastel\\\"}\\n```" + `"}]}}]}`
	got, err := ParseStructuredResponse(raw(body))
	if err != nil {
		t.Fatalf("ParseStructuredResponse: %v", err)
	}
	if got["style_prompt"] != "flat pastel" {
		t.Fatalf("style_prompt: got=%v", got["style_prompt"])
	}
}

func TestParseStructuredResponsePrefersTextField(t *testing.T) {
	t.Parallel()
	body := `{"text":"{\"source\":\"text_field\"}","candidates":[{"content":{"parts":[{"text":"{\"source\":\"parts\"}"}]}}]}`
	got, err := ParseStructuredResponse(raw(body))
	if err != nil {
		t.Fatalf("ParseStructuredResponse: %v", err)
	}
	if got["source"] != "text_field" {
		t.Fatalf("source: got=%v want=text_field", got["source"])
	}
}

func TestParseStructuredResponseJoinsPartsAndSkipsThoughts(t *testing.T) {
	t.Parallel()
	body := `{"candidates":[{"content":{"parts":[{"text":"{\"ignored\":true}","thought":true},{"text":"{\"a\":"},{"text":"1}"}]}}]}`
	got, err := ParseStructuredResponse(raw(body))
	if err != nil {
		t.Fatalf("ParseStructuredResponse: %v", err)
	}
	if got["a"] != float64(1) {
		t.Fatalf("a: got=%v", got["a"])
	}
	if _, ok := got["ignored"]; ok {
		t.Fatalf("thought part leaked into result")
	}
}

func TestParseStructuredTextBracesInsideStrings(t *testing.T) {
	t.Parallel()
	got, err := ParseStructuredText(`note {broken} then {"msg":"use } and { freely","n":2} trailing`)
	if err != nil {
		t.Fatalf("ParseStructuredText: %v", err)
	}
	if got["msg"] != "use } and { freely" {
		t.Fatalf("msg: got=%v", got["msg"])
	}
}

func TestParseStructuredResponseUnparsable(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"prose only":    `{"candidates":[{"content":{"parts":[{"text":"no json here"}]}}]}`,
		"no candidates": `{"candidates":[]}`,
		"not json":      `<html>`,
		"unbalanced":    `{"candidates":[{"content":{"parts":[{"text":"{\"a\":1"}]}}]}`,
	}
	for name, body := range cases {
		if _, err := ParseStructuredResponse(raw(body)); !errors.Is(err, ErrUnparsableAIResponse) {
			t.Fatalf("%s: err=%v want ErrUnparsableAIResponse", name, err)
		}
	}
}

func TestInlineImages(t *testing.T) {
	t.Parallel()
	png := []byte{0x89, 'P', 'N', 'G'}
	enc := base64.StdEncoding.EncodeToString(png)
	body := `{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"` + enc + `"}}]}}]}`
	imgs, err := InlineImages(raw(body))
	if err != nil {
		t.Fatalf("InlineImages: %v", err)
	}
	if len(imgs) != 1 || string(imgs[0].Data) != string(png) {
		t.Fatalf("InlineImages: got=%+v", imgs)
	}
	if got, want := imgs[0].DataURL(), "data:image/png;base64,"+enc; got != want {
		t.Fatalf("DataURL: got=%q want=%q", got, want)
	}

	if _, err := InlineImages(raw(`{"candidates":[{"content":{"parts":[{"text":"text only"}]}}]}`)); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("text only: err=%v want ErrEmptyResponse", err)
	}
}
