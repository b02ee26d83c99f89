package pipeline

import (
	"strings"
	"unicode"
)

// maxInputLength caps the item text sent to the model, counted in
// characters. Longer inputs are truncated, not rejected.
const maxInputLength = 10000

// sanitizeInput strips control characters and truncates oversized input on
// a rune boundary. Tabs and newlines survive; everything else below space
// is dropped.
func sanitizeInput(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	clean := strings.TrimSpace(b.String())
	if len(clean) > maxInputLength {
		if runes := []rune(clean); len(runes) > maxInputLength {
			clean = string(runes[:maxInputLength])
		}
	}
	return clean
}

// wrapAsData fences untrusted input so the model treats it as data rather
// than instructions.
func wrapAsData(text string) string {
	return "<<<ITEM\n" + text + "\nITEM>>>"
}
