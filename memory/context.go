package memory

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/asklly/asklly/summary"
)

// paramCountPattern extracts the parameter count from model names such as
// "deepseek-r1:14b" or "qwen2.5:7b".
var paramCountPattern = regexp.MustCompile(`(\d+)b`)

// IdealContext estimates a context budget in characters for a model from
// the parameter count in its name, scaled from 4096 at 7B and snapped to a
// power of two. Returns 0 when the name carries no parameter count, which
// disables budget-based trimming.
func IdealContext(model string) int {
	match := paramCountPattern.FindStringSubmatch(strings.ToLower(model))
	if match == nil {
		return 0
	}
	params, err := strconv.Atoi(match[1])
	if err != nil || params <= 0 {
		return 0
	}
	// Truncate before snapping: 14b lands at 11585, just under 2^13.5,
	// so it snaps down to 8192.
	ideal := int(4096 * math.Pow(float64(params)/7, 1.5))
	return int(math.Pow(2, math.Round(math.Log2(float64(ideal)))))
}

// TrimToContext hard-truncates text to the model's context budget.
func (m *Memory) TrimToContext(text string) string {
	ideal := IdealContext(m.model)
	if ideal <= 0 {
		return text
	}
	return truncateRunes(text, ideal)
}

// CompressToContext shrinks text under the model's context budget through
// the summarizer, trimming whatever the summary still overshoots.
func (m *Memory) CompressToContext(ctx context.Context, text string) string {
	ideal := IdealContext(m.model)
	if ideal <= 0 {
		return text
	}
	return m.compressText(ctx, text, ideal)
}

func (m *Memory) compressText(ctx context.Context, text string, target int) string {
	if len(text) <= target {
		return text
	}
	resp, err := m.summarizer.Summarize(ctx, &summary.Request{
		Content:   text,
		MinLength: target / 2,
	})
	if err != nil || resp == nil {
		return truncateRunes(text, target)
	}
	return truncateRunes(resp.Summary, target)
}

func truncateRunes(text string, maxLen int) string {
	if maxLen <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
