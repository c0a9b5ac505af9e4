// Package guard sanitizes free-text fields before they are interpolated
// into generation-backend prompts. Every worker that builds a prompt from
// caller- or context-supplied text applies the guard uniformly rather
// than ad hoc.
package guard

import (
	"regexp"
	"strings"
)

// Field length budgets. Fields known to carry long structured summaries
// get the larger budget; everything else gets the default.
const (
	// DefaultFieldLimit bounds ordinary free-text fields.
	DefaultFieldLimit = 500

	// SummaryFieldLimit bounds fields carrying long structured
	// summaries, e.g. serialized findings passed to the narrative stage.
	SummaryFieldLimit = 4000
)

// RedactionMarker replaces any matched instruction-override phrasing.
const RedactionMarker = "[redacted]"

// overridePatterns is the fixed list of known instruction-override
// phrasings, matched case-insensitively. Keep entries literal; new
// attack phrasings are appended here, not inlined at call sites.
var overridePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?prior\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+instructions`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior)\s+instructions`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an)\s`),
	regexp.MustCompile(`(?i)\bsystem\s*:`),
	regexp.MustCompile(`(?i)\bassistant\s*:`),
	regexp.MustCompile(`(?i)\bhuman\s*:`),
	regexp.MustCompile(`(?i)<\|im_start\|>`),
	regexp.MustCompile(`(?i)<\|im_end\|>`),
	regexp.MustCompile(`(?i)<\|endoftext\|>`),
	regexp.MustCompile(`(?i)\[/?INST\]`),
	regexp.MustCompile(`(?i)###\s*instruction`),
	regexp.MustCompile(`(?i)new\s+instructions?\s*:`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Sanitize cleans a free-text field under the default length budget.
func Sanitize(text string) string {
	return SanitizeField(text, DefaultFieldLimit)
}

// SanitizeSummary cleans a long structured-summary field.
func SanitizeSummary(text string) string {
	return SanitizeField(text, SummaryFieldLimit)
}

// SanitizeField truncates the text to the given budget, redacts known
// instruction-override phrasings, escapes characters that could break
// the surrounding prompt structure, and collapses whitespace. The result
// is safe to interpolate into a prompt body.
func SanitizeField(text string, limit int) string {
	if text == "" {
		return ""
	}
	if limit <= 0 {
		limit = DefaultFieldLimit
	}
	if len(text) > limit {
		text = text[:limit]
	}

	for _, pattern := range overridePatterns {
		text = pattern.ReplaceAllString(text, RedactionMarker)
	}

	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `"`, `\"`)
	text = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(text)
	text = whitespaceRun.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
