package genai

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/apexhq/salespilot/pkg/models"
)

// parseEmailContent extracts a subject/body pair from a model completion.
// The model is asked for bare JSON but frequently wraps it in code fences or
// leading prose, so the outermost object span is located first. Escaped
// newline literals inside the body are normalized to real newlines. Returns
// nil when no usable pair can be recovered.
func parseEmailContent(completion string) *models.EmailContent {
	text := strings.TrimSpace(completion)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}
	text = text[start : end+1]

	parsed := gjson.Parse(text)
	subject := strings.TrimSpace(parsed.Get("subject").String())
	body := strings.TrimSpace(parsed.Get("body").String())
	if subject == "" || body == "" {
		return nil
	}

	body = strings.ReplaceAll(body, `\r\n`, "\n")
	body = strings.ReplaceAll(body, `\n`, "\n")
	body = strings.ReplaceAll(body, "\r\n", "\n")

	return &models.EmailContent{
		Subject: subject,
		Body:    body,
	}
}
