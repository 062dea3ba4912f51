package summary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/asklly/asklly/provider"
)

type stubGenerator struct {
	answer string
	err    error
}

func (s *stubGenerator) Respond(_ context.Context, _ []provider.Message) (string, error) {
	return s.answer, s.err
}

func TestShortContentPassesThrough(t *testing.T) {
	s := NewSummarizer(&stubGenerator{answer: "should not be used"})
	resp, err := s.Summarize(context.Background(), &Request{Content: "short note"})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if resp.Source != "original" || resp.Summary != "short note" {
		t.Errorf("got (%q, %q), want unchanged original", resp.Summary, resp.Source)
	}
}

func TestLLMSummary(t *testing.T) {
	long := strings.Repeat("the meeting moved to tuesday. ", 20)
	s := NewSummarizer(&stubGenerator{answer: "Summary: meeting moved to tuesday"})
	resp, err := s.Summarize(context.Background(), &Request{Content: long})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if resp.Source != "llm" {
		t.Errorf("Source = %q, want llm", resp.Source)
	}
	if resp.Summary != "meeting moved to tuesday" {
		t.Errorf("Summary = %q, prefix not stripped", resp.Summary)
	}
}

func TestLLMFailureFallsBack(t *testing.T) {
	long := "First line of a long text.\n" + strings.Repeat("more detail here. ", 50)
	s := NewSummarizer(&stubGenerator{err: errors.New("backend down")})
	resp, err := s.Summarize(context.Background(), &Request{Content: long})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if !strings.HasPrefix(resp.Source, "fallback_") {
		t.Errorf("Source = %q, want a fallback source", resp.Source)
	}
	if len(resp.Summary) >= len(long) {
		t.Errorf("fallback summary is not shorter: %d >= %d", len(resp.Summary), len(long))
	}
}

func TestFallbackDeterministic(t *testing.T) {
	content := strings.Repeat("abc def. ", 200)
	first, err := Fallback(content, 100)
	if err != nil {
		t.Fatalf("Fallback() error = %v", err)
	}
	second, err := Fallback(content, 100)
	if err != nil {
		t.Fatalf("Fallback() error = %v", err)
	}
	if first.Summary != second.Summary || first.Source != second.Source {
		t.Error("Fallback() is not deterministic for identical inputs")
	}
}

func TestFallbackTruncateBound(t *testing.T) {
	content := strings.Repeat("x", 20000)
	resp, err := Fallback(content, 10000)
	if err != nil {
		t.Fatalf("Fallback() error = %v", err)
	}
	if resp.Source != "fallback_truncate" {
		t.Errorf("Source = %q, want fallback_truncate", resp.Source)
	}
	if got := utf8.RuneCountInString(resp.Summary); got > 10000 {
		t.Errorf("summary length = %d, want <= 10000", got)
	}
}

func TestTargetLength(t *testing.T) {
	tests := []struct {
		textLen int
		min     int
		want    int
	}{
		{20000, 64, 10000},
		{100, 64, 128},
		{129, 64, 64},
		{2000, 0, 1000},
	}
	for _, tt := range tests {
		if got := TargetLength(tt.textLen, tt.min); got != tt.want {
			t.Errorf("TargetLength(%d, %d) = %d, want %d", tt.textLen, tt.min, got, tt.want)
		}
	}
}
