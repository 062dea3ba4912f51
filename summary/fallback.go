package summary

import (
	"strings"
	"unicode/utf8"
)

// Fallback summarizes without a model: first paragraph, else first sentence,
// else a rune-safe truncation. Deterministic for identical inputs.
func Fallback(content string, maxLen int) (*Response, error) {
	if maxLen <= 0 {
		maxLen = MinLength * 2
	}

	if firstPara := firstParagraph(content); firstPara != "" && firstPara != strings.TrimSpace(content) {
		return &Response{
			Summary: truncateRunes(firstPara, maxLen),
			Source:  "fallback_first_para",
		}, nil
	}

	if firstSentence := firstSentence(content); firstSentence != "" && firstSentence != strings.TrimSpace(content) {
		return &Response{
			Summary: truncateRunes(firstSentence, maxLen),
			Source:  "fallback_first_sentence",
		}, nil
	}

	return &Response{
		Summary: truncateRunes(content, maxLen),
		Source:  "fallback_truncate",
	}, nil
}

func firstParagraph(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstSentence(content string) string {
	line := firstParagraph(content)
	if line == "" {
		return ""
	}
	endMarkers := []string{". ", "? ", "! ", "。", "？", "！"}
	best := -1
	for _, marker := range endMarkers {
		if idx := strings.Index(line, marker); idx >= 0 {
			end := idx + len(marker)
			if best == -1 || end < best {
				best = end
			}
		}
	}
	if best > 0 {
		return strings.TrimSpace(line[:best])
	}
	return line
}

// truncateRunes shortens s to maxLen runes without splitting a character.
func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}
