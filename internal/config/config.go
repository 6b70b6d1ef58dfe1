package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Telegram
	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID,required"`

	// CRM (Zoho-style OAuth)
	CRMClientID     string `env:"CRM_CLIENT_ID,required"`
	CRMClientSecret string `env:"CRM_CLIENT_SECRET,required"`
	CRMRefreshToken string `env:"CRM_REFRESH_TOKEN,required"`
	CRMAPIDomain    string `env:"CRM_API_DOMAIN" envDefault:"https://www.zohoapis.com"`

	// Mail (Gmail API OAuth)
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,required"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,required"`
	GoogleRefreshToken string `env:"GOOGLE_REFRESH_TOKEN,required"`
	FromEmail          string `env:"FROM_EMAIL,required"`

	// Text generation
	OpenAIAPIKey string `env:"OPENAI_API_KEY,required"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Marketing CRM (lead-finder workflow)
	MarketingAccessToken string `env:"MARKETING_ACCESS_TOKEN"`
	MarketingBaseURL     string `env:"MARKETING_BASE_URL" envDefault:"https://api.hubapi.com"`

	// Enrichment (optional; unset disables the integration)
	ApolloAPIKey    string `env:"APOLLO_API_KEY"`
	FirefliesAPIKey string `env:"FIREFLIES_API_KEY"`

	// Knowledge base (Chroma server)
	ChromaURL        string `env:"CHROMA_URL"`
	ChromaCollection string `env:"CHROMA_COLLECTION" envDefault:"company_knowledge"`

	// Lead-finder filters
	DigestRecipients      []string `env:"LEAD_FINDER_RECIPIENTS" envSeparator:","`
	StaleThresholdDays    int      `env:"STALE_THRESHOLD_DAYS" envDefault:"14"`
	MinEmployeeSize       int      `env:"MIN_EMPLOYEE_SIZE" envDefault:"200"`
	TargetIndustries      []string `env:"TARGET_INDUSTRIES" envSeparator:","`
	TargetCountries       []string `env:"TARGET_COUNTRIES" envSeparator:","`
	TargetJobTitles       []string `env:"TARGET_JOB_TITLES" envSeparator:","`
	TargetLifecycleStages []string `env:"TARGET_LIFECYCLE_STAGES" envSeparator:","`
	TopLeadsCount         int      `env:"TOP_LEADS_COUNT" envDefault:"10"`

	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/salespilot.db"`
	DraftsPath   string `env:"DRAFTS_PATH" envDefault:"./data/pending_drafts.json"`
	OutputDir    string `env:"OUTPUT_DIR" envDefault:"./data/digests"`

	// Prompt material
	CompanyContextPath string `env:"COMPANY_CONTEXT_PATH" envDefault:"./company_context.md"`
	SystemPromptPath   string `env:"SYSTEM_PROMPT_PATH" envDefault:"./system_prompt.md"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// ApolloEnabled returns true if Apollo enrichment is configured
func (c *Config) ApolloEnabled() bool { return c.ApolloAPIKey != "" }

// FirefliesEnabled returns true if transcript search is configured
func (c *Config) FirefliesEnabled() bool { return c.FirefliesAPIKey != "" }

// KnowledgeBaseEnabled returns true if the vector KB is configured
func (c *Config) KnowledgeBaseEnabled() bool { return c.ChromaURL != "" }

// MarketingEnabled returns true if the marketing CRM is configured
func (c *Config) MarketingEnabled() bool { return c.MarketingAccessToken != "" }

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.TopLeadsCount <= 0 {
		return nil, fmt.Errorf("TOP_LEADS_COUNT must be positive, got %d", cfg.TopLeadsCount)
	}
	if cfg.StaleThresholdDays <= 0 {
		return nil, fmt.Errorf("STALE_THRESHOLD_DAYS must be positive, got %d", cfg.StaleThresholdDays)
	}

	return cfg, nil
}
