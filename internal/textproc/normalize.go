package textproc

import (
	"regexp"
	"strings"
)

const (
	// MinWords and MinChars are the default thresholds below which a
	// normalized text carries too little information to be worth embedding.
	MinWords = 5
	MinChars = 20
)

var (
	urlRe          = regexp.MustCompile(`https?://\S+|www\.\S+`)
	mentionRe      = regexp.MustCompile(`@\w+`)
	markupRe       = regexp.MustCompile(`<[^>]*>`)
	nonPrintableRe = regexp.MustCompile(`[^\x20-\x7E]+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

var quoteReplacer = strings.NewReplacer(
	"\n", " ",
	"\r", " ",
	`\'`, "'",
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
)

// Normalize strips noise from raw post text: line breaks become spaces,
// curly quotes become ASCII, URLs, @mentions, '#' markers (the tag word is
// kept), markup tags and non-printable characters are removed, whitespace
// runs collapse. Idempotent and side-effect free.
func Normalize(raw string) string {
	text := quoteReplacer.Replace(raw)
	text = strings.ToLower(text)
	text = urlRe.ReplaceAllString(text, "")
	text = mentionRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "#", "")
	text = markupRe.ReplaceAllString(text, "")
	text = nonPrintableRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// MeetsThresholds reports whether a normalized text carries enough words
// and characters to be worth embedding.
func MeetsThresholds(text string, minWords, minChars int) bool {
	return len(strings.Fields(text)) >= minWords && len(text) >= minChars
}

// FilterLowInformation keeps only texts meeting both thresholds,
// preserving order.
func FilterLowInformation(texts []string, minWords, minChars int) []string {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if MeetsThresholds(t, minWords, minChars) {
			kept = append(kept, t)
		}
	}
	return kept
}
