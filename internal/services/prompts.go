package services

import (
	"fmt"
	"strings"

	"github.com/yungbote/infographic-backend/internal/platform/promptstyle"
)

const documentAnalysisPrompt = `Analyze the attached document and plan an illustrated infographic storyboard for it.

Return JSON with exactly these keys:
{
  "title": string,                 // document title, or a short descriptive title
  "summary": string,               // 2-4 sentence summary
  "content_type": string,          // e.g. "report", "article", "story", "manual", "slides"
  "page_count": integer,           // pages in the source, 1 when unknown
  "scenes": [
    {
      "scene_number": integer,     // 1-based
      "title": string,
      "description": string,       // what the scene explains
      "visual_prompt": string,     // English prompt for an image model, no text rendering instructions
      "characters": [string]       // names of characters present
    }
  ],
  "characters": [
    {"name": string, "description": string, "appearance": string}
  ]
}

Rules:
- Between 1 and 12 scenes; one scene per key idea, in reading order.
- Use an empty array when there are no characters.
- Keep visual prompts concrete: subject, composition, setting, lighting.`

const styleAnalysisPrompt = `Describe the visual style of the attached reference image so it can be reused for new infographic illustrations.

Return JSON with exactly these keys:
{
  "style_prompt": string,          // English, 40-120 words: medium, palette, line work, lighting, texture, composition
  "style_description_zh": string,  // the same description in Simplified Chinese
  "image_content": string,         // one sentence on what the image depicts
  "suggested_tags": [string]       // 3-8 short lowercase tags
}

Describe the style only; the style_prompt must not mention the specific subject matter.`

const promptOptimizationPrompt = `Rewrite the user's script into a single, vivid English prompt for an image generation model that produces an infographic illustration.

Return JSON with exactly these keys:
{
  "optimizedPrompt": string,       // the rewritten prompt
  "explanation": string            // one or two sentences on what was changed
}

Keep every fact from the script. Describe layout, focal subject and supporting visual elements.`

func documentAnalysisInstruction(fileName string) string {
	p := documentAnalysisPrompt
	if name := strings.TrimSpace(fileName); name != "" {
		p += fmt.Sprintf("\n\nThe document file name is %q.", name)
	}
	return promptstyle.Apply(p, promptstyle.ModeJSON)
}

func styleAnalysisInstruction(name string) string {
	p := styleAnalysisPrompt
	if n := strings.TrimSpace(name); n != "" {
		p += fmt.Sprintf("\n\nThe user calls this style %q.", n)
	}
	return promptstyle.Apply(p, promptstyle.ModeJSON)
}

func promptOptimizationInstruction(userScript, styleContext string) string {
	var b strings.Builder
	b.WriteString(promptOptimizationPrompt)
	if sc := strings.TrimSpace(styleContext); sc != "" {
		b.WriteString("\n\nThe image will be rendered in this style (do not restate it, keep the prompt compatible):\n")
		b.WriteString(sc)
	}
	b.WriteString("\n\nUser script:\n")
	b.WriteString(strings.TrimSpace(userScript))
	return promptstyle.Apply(b.String(), promptstyle.ModeJSON)
}

// composeImagePrompt is the final text sent to the image model and stored
// in history.
func composeImagePrompt(prompt, stylePrompt string, hasReference bool) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	if sp := strings.TrimSpace(stylePrompt); sp != "" {
		b.WriteString("\n\nVisual style: ")
		b.WriteString(sp)
	}
	if hasReference {
		b.WriteString("\n\nUse the attached image as the style and composition reference.")
	}
	return b.String()
}
