package prompt

import (
	"strings"
	"unicode/utf8"
)

// LatestUpdate labels the parts of one incremental update in fixed order:
// code first, then transcript. Absent parts are left out entirely.
func LatestUpdate(code, transcript string) string {
	var parts []string
	if code != "" {
		parts = append(parts, "Code: "+code)
	}
	if transcript != "" {
		parts = append(parts, "Transcript: "+transcript)
	}
	return strings.Join(parts, "\n")
}

// Summarizer folds incremental updates into the running summary.
// MaxChars caps the summary length; zero leaves it unbounded.
type Summarizer struct {
	MaxChars int
}

// Update returns summary extended by update, each trimmed and joined by a single space
func (s Summarizer) Update(summary, update string) string {
	summary = strings.TrimSpace(summary)
	update = strings.TrimSpace(update)

	switch {
	case update == "":
	case summary == "":
		summary = update
	default:
		summary = summary + " " + update
	}

	return s.compact(summary)
}

// compact keeps the newest MaxChars bytes of the summary, starting on a word boundary when one exists
func (s Summarizer) compact(summary string) string {
	if s.MaxChars <= 0 || len(summary) <= s.MaxChars {
		return summary
	}

	cut := len(summary) - s.MaxChars
	for cut < len(summary) && !utf8.RuneStart(summary[cut]) {
		cut++
	}
	tail := summary[cut:]

	// a cut right after whitespace already starts a word
	midWord := cut > 0 && !strings.ContainsRune(" \n\t", rune(summary[cut-1]))
	if i := strings.IndexAny(tail, " \n\t"); midWord && i >= 0 && i < len(tail)-1 {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(tail)
}
