package promptstyle

import "strings"

const marker = "INFOGRAPHIC_PROMPT_STYLE_V1"

const (
	ModeJSON = "json"
	ModeText = "text"
)

// Apply prepends the shared guidance block to an instruction prompt. It is
// idempotent: already-styled prompts are returned unchanged.
func Apply(instruction string, mode string) string {
	base := strings.TrimSpace(instruction)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	taskSummary := ""
	for _, line := range strings.Split(base, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			taskSummary = trimmed
			break
		}
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou are a careful assistant for an infographic design studio.")
	if taskSummary != "" {
		b.WriteString("\nTask summary: " + taskSummary)
	}
	b.WriteString("\nFollow the instructions precisely.")
	b.WriteString("\nUse the provided document or image as grounding; do not invent facts.")
	if mode == ModeJSON {
		b.WriteString("\nReturn a single JSON object that conforms to the schema. No markdown fences, no commentary.")
	} else {
		b.WriteString("\nBe concise.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}
