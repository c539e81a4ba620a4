// Package summarize turns captured content into an intent-shaped summary via
// the model API.
package summarize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vector-m/signald/internal/openai"
	"github.com/vector-m/signald/internal/segment"
)

const maxSummaryTokens = 1024

type Summarizer struct {
	llm      *openai.Client
	inputCap int
	logger   *slog.Logger
}

// New builds a Summarizer. inputCap bounds how many runes of content reach
// the model; it is smaller than the storage ceiling to bound token cost.
func New(llm *openai.Client, inputCap int, logger *slog.Logger) *Summarizer {
	return &Summarizer{llm: llm, inputCap: inputCap, logger: logger}
}

const userPrompt = `%s

Title: %s
Source: %s

Content:
---
%s
---`

// Summarize generates a summary for the given capture. Content beyond the
// input cap is clipped at a word boundary before it reaches the model.
func (s *Summarizer) Summarize(ctx context.Context, intent, title, url, content string) (string, error) {
	clipped := segment.Clip(content, s.inputCap)

	s.logger.Info("summarizing signal",
		"intent", intent,
		"title", title,
		"content_len", len([]rune(content)),
		"model_input_len", len([]rune(clipped)),
	)

	prompt := fmt.Sprintf(userPrompt, instructionFor(intent), title, url, clipped)

	text, err := s.llm.Complete(ctx, systemPrompt, prompt, maxSummaryTokens)
	if err != nil {
		return "", fmt.Errorf("llm summary: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("llm returned empty summary")
	}
	return text, nil
}
