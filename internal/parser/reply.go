package parser

import (
	"regexp"
	"strings"
)

// Quoted-text markers. A marker only counts when it appears past the first
// few characters, so a message that *starts* with "From:" is left alone.
var (
	onWroteRegex  = regexp.MustCompile(`(?is)on\s+.*?\s+wrote:`)
	fromSentRegex = regexp.MustCompile(`(?is)from:\s+.*?\s+sent:\s+`)
)

const quoteMarkerMinOffset = 5

// StripQuoted removes quoted reply chains from a plain-text email body using
// the common marker styles: "On ... wrote:", "-----Original", and the
// Outlook "From: ... Sent:" header block.
func StripQuoted(text string) string {
	if loc := onWroteRegex.FindStringIndex(text); loc != nil && loc[0] > quoteMarkerMinOffset {
		text = text[:loc[0]]
	}

	if idx := strings.Index(text, "-----Original"); idx > quoteMarkerMinOffset {
		text = text[:idx]
	}

	if loc := fromSentRegex.FindStringIndex(text); loc != nil && loc[0] > quoteMarkerMinOffset {
		text = text[:loc[0]]
	}

	return strings.TrimSpace(text)
}
