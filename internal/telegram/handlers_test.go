package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexhq/salespilot/internal/formatter"
	"github.com/apexhq/salespilot/internal/leadfinder"
	"github.com/apexhq/salespilot/pkg/models"
)

func TestParseManualEdit(t *testing.T) {
	subject, body, ok := parseManualEdit("Subject: Quick question\nHi Ada,\n\nShort note.")
	assert.True(t, ok)
	assert.Equal(t, "Quick question", subject)
	assert.Equal(t, "Hi Ada,\n\nShort note.", body)

	// Case-insensitive prefix.
	_, _, ok = parseManualEdit("subject: Hello\nBody here")
	assert.True(t, ok)

	// Plain feedback is not a manual edit.
	_, _, ok = parseManualEdit("make it shorter and friendlier")
	assert.False(t, ok)

	// A subject with no body is incomplete.
	_, _, ok = parseManualEdit("Subject: Hello")
	assert.False(t, ok)
}

func TestDigestSummary(t *testing.T) {
	digest := &leadfinder.Digest{
		GeneratedAt:     time.Now(),
		ContactsScanned: 120,
		Qualified:       5,
		Leads: []leadfinder.ScoredLead{
			{Contact: models.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, Score: 72},
		},
	}

	out := digestSummary(digest)
	assert.Contains(t, out, "Scanned 120 contacts")
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "score 72")
}

func TestDigestSummaryEmpty(t *testing.T) {
	out := digestSummary(&leadfinder.Digest{ContactsScanned: 10})
	assert.Contains(t, out, "No engaged stale leads")
}

func TestSendParamsThreadsUnderAnchor(t *testing.T) {
	keyboard := formatter.DraftKeyboard("d1")

	params := sendParams(42, "card", keyboard, 100)
	require.NotNil(t, params.ReplyParameters)
	assert.Equal(t, 100, params.ReplyParameters.MessageID)
	assert.Equal(t, keyboard, params.ReplyMarkup)

	// No anchor means a plain, unthreaded message.
	params = sendParams(42, "card", nil, 0)
	assert.Nil(t, params.ReplyParameters)
	assert.Nil(t, params.ReplyMarkup)
}

func TestRunAnchorLifecycle(t *testing.T) {
	b := &Bot{}
	assert.Equal(t, 0, b.runAnchorID())

	b.setRunAnchor(77)
	assert.Equal(t, 77, b.runAnchorID())

	b.setRunAnchor(0)
	assert.Equal(t, 0, b.runAnchorID())
}
