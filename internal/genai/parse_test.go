package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexhq/salespilot/pkg/models"
)

func TestParseEmailContent(t *testing.T) {
	tests := []struct {
		name       string
		completion string
		expected   *models.EmailContent
	}{
		{
			name:       "bare json",
			completion: `{"subject": "Quick question", "body": "Hi there"}`,
			expected:   &models.EmailContent{Subject: "Quick question", Body: "Hi there"},
		},
		{
			name: "fenced json",
			completion: "```json\n" +
				`{"subject": "Hello", "body": "First line\nSecond line"}` +
				"\n```",
			expected: &models.EmailContent{Subject: "Hello", Body: "First line\nSecond line"},
		},
		{
			name:       "json with leading prose",
			completion: `Here is the email: {"subject": "Hi", "body": "Short note"}`,
			expected:   &models.EmailContent{Subject: "Hi", Body: "Short note"},
		},
		{
			name:       "missing subject",
			completion: `{"body": "no subject here"}`,
			expected:   nil,
		},
		{
			name:       "missing body",
			completion: `{"subject": "only a subject"}`,
			expected:   nil,
		},
		{
			name:       "no json at all",
			completion: "Sorry, I cannot help with that.",
			expected:   nil,
		},
		{
			name:       "empty completion",
			completion: "",
			expected:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseEmailContent(tt.completion))
		})
	}
}

func TestParseEmailContentNormalizesEscapedNewlines(t *testing.T) {
	// Models sometimes double-escape newlines inside the JSON string, which
	// survives decoding as a literal backslash-n.
	completion := `{"subject": "Hi", "body": "Line one\\nLine two\\r\\nLine three"}`

	content := parseEmailContent(completion)
	require.NotNil(t, content)
	assert.Equal(t, "Line one\nLine two\nLine three", content.Body)
}
