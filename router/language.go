package router

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// languagesByCode maps the ISO codes accepted in the configuration onto
// detector languages.
var languagesByCode = map[string]lingua.Language{
	"en": lingua.English,
	"fr": lingua.French,
	"zh": lingua.Chinese,
	"es": lingua.Spanish,
	"de": lingua.German,
	"ja": lingua.Japanese,
}

// LanguageDetector classifies a query into one of the configured languages
// so routing can compare against examples of the same language.
type LanguageDetector struct {
	detector lingua.LanguageDetector
	primary  string
}

// NewLanguageDetector builds a detector over the configured language codes.
// Unknown codes are dropped; the first valid code becomes the fallback for
// undetectable input. The detector needs at least two candidates, so short
// lists are padded with English and Chinese.
func NewLanguageDetector(codes []string) *LanguageDetector {
	primary := "en"
	languages := []lingua.Language{}
	seen := map[lingua.Language]bool{}
	for _, code := range codes {
		normalized := strings.ToLower(strings.TrimSpace(code))
		lang, ok := languagesByCode[normalized]
		if !ok {
			continue
		}
		if len(languages) == 0 {
			primary = normalized
		}
		if !seen[lang] {
			seen[lang] = true
			languages = append(languages, lang)
		}
	}
	for _, pad := range []lingua.Language{lingua.English, lingua.Chinese} {
		if len(languages) >= 2 {
			break
		}
		if !seen[pad] {
			seen[pad] = true
			languages = append(languages, pad)
		}
	}

	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(languages...).Build(),
		primary:  primary,
	}
}

// Detect returns the ISO 639-1 code of the query language, falling back to
// the primary configured language.
func (d *LanguageDetector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return d.primary
	}
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return d.primary
	}
	return strings.ToLower(language.IsoCode639_1().String())
}

// Primary returns the fallback language code.
func (d *LanguageDetector) Primary() string {
	return d.primary
}
