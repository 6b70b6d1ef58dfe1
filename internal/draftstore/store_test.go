package draftstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexhq/salespilot/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testDraft() models.Draft {
	return models.Draft{
		Lead: models.Lead{ID: "lead-1", FirstName: "Ada", Email: "ada@example.com"},
		Plan: models.Plan{Kind: models.PlanEmail, Template: models.TemplateDay0Intro, LeadID: "lead-1"},
		Content: models.EmailContent{
			Subject: "Quick question",
			Body:    "Hi Ada,\n\nShort note.",
		},
	}
}

func TestSaveAssignsID(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "drafts.json"), testLogger())

	id, err := store.Save(testDraft())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	draft, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Quick question", draft.Content.Subject)
	assert.False(t, draft.CreatedAt.IsZero())
}

func TestSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.json")

	id, err := New(path, testLogger()).Save(testDraft())
	require.NoError(t, err)

	// Fresh instance, same file.
	draft, err := New(path, testLogger()).Get(id)
	require.NoError(t, err)
	assert.Equal(t, "lead-1", draft.Lead.ID)
}

func TestGetReloadsOnMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.json")
	reader := New(path, testLogger())

	// Written by a different instance after the reader opened the file.
	id, err := New(path, testLogger()).Save(testDraft())
	require.NoError(t, err)

	draft, err := reader.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "lead-1", draft.Lead.ID)
}

func TestGetUnknown(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "drafts.json"), testLogger())

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateContent(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "drafts.json"), testLogger())
	id, err := store.Save(testDraft())
	require.NoError(t, err)

	err = store.UpdateContent(id, models.EmailContent{Subject: "Revised", Body: "New body"})
	require.NoError(t, err)

	draft, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Revised", draft.Content.Subject)
}

func TestDelete(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "drafts.json"), testLogger())
	id, err := store.Save(testDraft())
	require.NoError(t, err)

	require.NoError(t, store.Delete(id))
	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	// Idempotent.
	assert.NoError(t, store.Delete(id))
}

func TestCleanup(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "drafts.json"), testLogger())

	old := testDraft()
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	_, err := store.Save(old)
	require.NoError(t, err)

	freshID, err := store.Save(testDraft())
	require.NoError(t, err)

	removed, err := store.Cleanup(0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Count())

	_, err = store.Get(freshID)
	assert.NoError(t, err)
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := New(path, testLogger())
	assert.Equal(t, 0, store.Count())

	// The store still works after recovery.
	_, err := store.Save(testDraft())
	assert.NoError(t, err)
}
