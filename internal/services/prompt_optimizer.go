package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/pointers"
	"github.com/yungbote/infographic-backend/internal/platform/gemini"
)

type OptimizedPrompt struct {
	OptimizedPrompt string `json:"optimizedPrompt"`
	Explanation     string `json:"explanation"`
	Fallback        bool   `json:"fallback"`
}

type PromptOptimizer interface {
	// Optimize only fails on provider errors; an unusable answer falls back
	// to the original script.
	Optimize(ctx context.Context, userScript, styleContext string) (*OptimizedPrompt, error)
}

type promptOptimizer struct {
	log *logger.Logger
	ai  gemini.Client
}

func NewPromptOptimizer(log *logger.Logger, ai gemini.Client) PromptOptimizer {
	return &promptOptimizer{log: log.With("service", "PromptOptimizer"), ai: ai}
}

func (p *promptOptimizer) Optimize(ctx context.Context, userScript, styleContext string) (*OptimizedPrompt, error) {
	script := strings.TrimSpace(userScript)
	if script == "" {
		return nil, fmt.Errorf("%w: userScript is required", ErrInvalidArgument)
	}
	raw, err := p.ai.GenerateContent(ctx, p.ai.TextModel(), []gemini.Part{
		gemini.TextPart(promptOptimizationInstruction(script, styleContext)),
	}, gemini.GenerationConfig{
		ResponseMimeType: "application/json",
		Temperature:      pointers.Float64(0.4),
	})
	if err != nil {
		return nil, err
	}

	obj, err := gemini.ParseStructuredResponse(raw)
	if err != nil {
		if !errors.Is(err, gemini.ErrUnparsableAIResponse) && !errors.Is(err, gemini.ErrEmptyResponse) {
			return nil, err
		}
		p.log.Warn("prompt optimization unparsable; echoing original", "error", err)
		return fallbackPrompt(script), nil
	}
	optimized := stringField(obj, "optimizedPrompt")
	if optimized == "" {
		optimized = stringField(obj, "optimized_prompt")
	}
	if optimized == "" {
		return fallbackPrompt(script), nil
	}
	return &OptimizedPrompt{
		OptimizedPrompt: optimized,
		Explanation:     stringField(obj, "explanation"),
	}, nil
}

func fallbackPrompt(script string) *OptimizedPrompt {
	return &OptimizedPrompt{
		OptimizedPrompt: script,
		Explanation:     "The optimizer response could not be used; the original text is returned unchanged.",
		Fallback:        true,
	}
}
