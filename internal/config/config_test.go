package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("TELEGRAM_CHAT_ID", "123456")
	t.Setenv("CRM_CLIENT_ID", "cid")
	t.Setenv("CRM_CLIENT_SECRET", "secret")
	t.Setenv("CRM_REFRESH_TOKEN", "refresh")
	t.Setenv("GOOGLE_CLIENT_ID", "gid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "gsecret")
	t.Setenv("GOOGLE_REFRESH_TOKEN", "grefresh")
	t.Setenv("FROM_EMAIL", "agent@example.com")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(123456), cfg.TelegramChatID)
	assert.Equal(t, "https://www.zohoapis.com", cfg.CRMAPIDomain)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 14, cfg.StaleThresholdDays)
	assert.Equal(t, 10, cfg.TopLeadsCount)
	assert.Equal(t, "./data/pending_drafts.json", cfg.DraftsPath)

	assert.False(t, cfg.ApolloEnabled())
	assert.False(t, cfg.MarketingEnabled())
}

func TestLoadLists(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TARGET_INDUSTRIES", "Manufacturing,Logistics")
	t.Setenv("LEAD_FINDER_RECIPIENTS", "a@example.com,b@example.com")
	t.Setenv("APOLLO_API_KEY", "apollo-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"Manufacturing", "Logistics"}, cfg.TargetIndustries)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.DigestRecipients)
	assert.True(t, cfg.ApolloEnabled())
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	// t.Setenv registered the restore; drop the variable entirely.
	t.Setenv("TELEGRAM_BOT_TOKEN", "placeholder")
	require.NoError(t, os.Unsetenv("TELEGRAM_BOT_TOKEN"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveCounts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOP_LEADS_COUNT", "0")

	_, err := Load()
	assert.Error(t, err)
}
