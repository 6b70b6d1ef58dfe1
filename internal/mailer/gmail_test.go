package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	raw, err := buildMessage(
		"agent@example.com",
		"lead@example.com",
		"Quick question",
		"<p>Hello</p>",
		nil,
	)
	require.NoError(t, err)

	msg := string(raw)
	assert.Contains(t, msg, "From: <agent@example.com>")
	assert.Contains(t, msg, "To: <lead@example.com>")
	assert.Contains(t, msg, "Subject: Quick question")
	assert.Contains(t, msg, "text/html")
	assert.NotContains(t, msg, "In-Reply-To")
}

func TestBuildMessageThreaded(t *testing.T) {
	thread := &ThreadContext{
		ThreadID:   "t1",
		InReplyTo:  "<abc@mail.example.com>",
		References: "<root@mail.example.com> <abc@mail.example.com>",
	}

	raw, err := buildMessage(
		"agent@example.com",
		"lead@example.com",
		"Re: Quick question",
		"<p>Following up</p>",
		thread,
	)
	require.NoError(t, err)

	msg := string(raw)
	assert.Contains(t, msg, "In-Reply-To: <abc@mail.example.com>")
	assert.Contains(t, msg, "References: <root@mail.example.com>")
}

func TestBuildMessageEncodesBody(t *testing.T) {
	raw, err := buildMessage(
		"agent@example.com",
		"lead@example.com",
		"Hi",
		strings.Repeat("<p>long line of text </p>", 20),
		nil,
	)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}
