package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EmailCleaner converts HTML email bodies into clean plain text suitable for
// planner context and prompt assembly.
type EmailCleaner struct {
	whitespaceRegex *regexp.Regexp
	newlineRegex    *regexp.Regexp
	invisibleRegex  *regexp.Regexp
}

// NewEmailCleaner creates a new email body cleaner
func NewEmailCleaner() *EmailCleaner {
	return &EmailCleaner{
		whitespaceRegex: regexp.MustCompile(`[^\S\n]+`),
		newlineRegex:    regexp.MustCompile(`\n{3,}`),
		// Invisible Unicode characters (zero-width spaces, soft hyphens, etc.)
		invisibleRegex: regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{034F}\x{061C}\x{2060}-\x{2064}\x{206A}-\x{206F}\x{FE00}-\x{FE0F}]+`),
	}
}

// CleanHTML converts an HTML email body to plain text. Non-HTML input passes
// through with the same whitespace normalization.
func (c *EmailCleaner) CleanHTML(html string) (string, error) {
	if html == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	// Remove non-content elements
	doc.Find("script, style, head, meta, link").Remove()

	// Add newlines before block elements so text extraction keeps structure
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})

	text := doc.Text()

	text = c.invisibleRegex.ReplaceAllString(text, "")
	text = c.whitespaceRegex.ReplaceAllString(text, " ")

	// Trim each line and drop empty ones
	lines := strings.Split(text, "\n")
	var cleanLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanLines = append(cleanLines, line)
		}
	}
	text = strings.Join(cleanLines, "\n")

	text = c.newlineRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text), nil
}

// CleanReply strips HTML and quoted reply text, returning only the lead's own
// words. This is the form embedded in plan context and prompts.
func (c *EmailCleaner) CleanReply(content string) string {
	text, err := c.CleanHTML(content)
	if err != nil {
		// Fall back to raw content with tags crudely removed
		text = strings.TrimSpace(tagRegex.ReplaceAllString(content, " "))
	}
	return StripQuoted(text)
}

var tagRegex = regexp.MustCompile(`<[^>]+>`)
