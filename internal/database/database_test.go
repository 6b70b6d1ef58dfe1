package database

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := New(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSendLog(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.RecordSend(SendEntry{
		LeadID:    "lead-1",
		LeadEmail: "ada@example.com",
		Subject:   "Quick question",
		Template:  "day_0_intro",
		Result:    "SENT",
	}))
	require.NoError(t, db.RecordSend(SendEntry{
		LeadID:    "lead-2",
		LeadEmail: "bob@example.com",
		Subject:   "Following up",
		Template:  "day_2_followup",
		Result:    "EMAIL_FAILED",
		Detail:    "gmail API error",
		SentAt:    time.Now().Add(time.Minute),
	}))

	entries, err := db.RecentSends(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "lead-2", entries[0].LeadID)
	assert.Equal(t, "SENT", entries[1].Result)

	counts, err := db.SendsSince(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, counts["SENT"])
	assert.Equal(t, 1, counts["EMAIL_FAILED"])
}

func TestRunSummaries(t *testing.T) {
	db := testDB(t)

	last, err := db.LastRun("daily_check")
	require.NoError(t, err)
	assert.Nil(t, last)

	started := time.Now().Add(-time.Minute)
	require.NoError(t, db.RecordRun(RunSummary{
		Kind:          "daily_check",
		LeadsChecked:  12,
		DraftsCreated: 4,
		Errors:        1,
		StartedAt:     started,
		FinishedAt:    time.Now(),
	}))

	last, err = db.LastRun("daily_check")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 12, last.LeadsChecked)
	assert.Equal(t, 4, last.DraftsCreated)
}
