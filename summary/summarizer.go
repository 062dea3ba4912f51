// Package summary compresses long conversation messages. The primary path
// asks the session's model for a summary; when no model is reachable a
// deterministic fallback chain keeps compression available offline.
package summary

import (
	"context"
	"time"
)

// MinLength is the default minimum summary length in characters.
const MinLength = 64

// Summarizer shortens a piece of conversation content.
type Summarizer interface {
	Summarize(ctx context.Context, req *Request) (*Response, error)
}

// Request describes one summarization call.
type Request struct {
	Content string
	// MinLength bounds the summary from below; zero means MinLength.
	MinLength int
}

// Response carries the summary and where it came from.
type Response struct {
	Summary string
	Source  string // "original" | "llm" | "fallback_first_para" | "fallback_first_sentence" | "fallback_truncate"
	Latency time.Duration
}

// TargetLength computes the summary budget for a text: half the input when
// the text exceeds twice the minimum length, twice the minimum otherwise.
func TargetLength(textLen, minLength int) int {
	if minLength <= 0 {
		minLength = MinLength
	}
	if textLen > minLength*2 {
		return textLen / 2
	}
	return minLength * 2
}

// passThrough reports whether the text is too short to be worth summarizing.
func passThrough(text string, minLength int) bool {
	if minLength <= 0 {
		minLength = MinLength
	}
	return len(text) < minLength*3/2
}
