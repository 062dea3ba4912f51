package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/asklly/asklly/provider"
)

// Generator is the slice of the provider client the summarizer needs.
type Generator interface {
	Respond(ctx context.Context, history []provider.Message) (string, error)
}

type llmSummarizer struct {
	gen     Generator
	timeout time.Duration
}

// NewSummarizer creates a summarizer backed by gen. A nil gen always takes
// the fallback chain.
func NewSummarizer(gen Generator) Summarizer {
	return &llmSummarizer{
		gen:     gen,
		timeout: 15 * time.Second,
	}
}

func (s *llmSummarizer) Summarize(ctx context.Context, req *Request) (*Response, error) {
	minLength := req.MinLength
	if minLength <= 0 {
		minLength = MinLength
	}

	if passThrough(req.Content, minLength) {
		return &Response{Summary: req.Content, Source: "original"}, nil
	}

	maxLen := TargetLength(len(req.Content), minLength)

	if s.gen == nil {
		return Fallback(req.Content, maxLen)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Summarize the following text in at most %d characters. Keep the key facts, drop filler, answer with the summary only.\n\n%s", maxLen, req.Content)
	messages := []provider.Message{
		provider.SystemPrompt(summarySystemPrompt),
		provider.UserMessage(userPrompt),
	}

	start := time.Now()
	content, err := s.gen.Respond(ctx, messages)
	if err != nil {
		return Fallback(req.Content, maxLen)
	}

	summary := cleanSummary(content)
	if summary == "" {
		return Fallback(req.Content, maxLen)
	}
	summary = truncateRunes(summary, maxLen)

	return &Response{
		Summary: summary,
		Source:  "llm",
		Latency: time.Since(start),
	}, nil
}

func cleanSummary(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	lower := strings.ToLower(content)
	for _, prefix := range []string{"summary:", "summarize:"} {
		if strings.HasPrefix(lower, prefix) {
			content = strings.TrimSpace(content[len(prefix):])
			break
		}
	}
	return content
}

const summarySystemPrompt = `You condense conversation history for an AI assistant. Preserve facts, names, numbers and decisions. Never invent content. Reply with the condensed text only, no preamble.`
