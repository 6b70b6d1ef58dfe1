package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"

	"github.com/apexhq/salespilot/pkg/models"
)

// Generator drafts outreach emails and conversation summaries with a chat
// completion model.
type Generator struct {
	client         openai.Client
	model          openai.ChatModel
	systemPrompt   string
	companyContext string
	logger         *slog.Logger
}

// Config for the generator
type Config struct {
	APIKey             string
	Model              string
	SystemPromptPath   string
	CompanyContextPath string
}

// ContextUpdate is the structured result of a conversation analysis.
type ContextUpdate struct {
	LastConversation string
	Status           string
	NextAction       string
}

// NewGenerator creates a generator, loading the system prompt and company
// context from disk with built-in fallbacks when the files are missing.
func NewGenerator(cfg Config, logger *slog.Logger) *Generator {
	return &Generator{
		client:         openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:          openai.ChatModel(cfg.Model),
		systemPrompt:   loadOrDefault(cfg.SystemPromptPath, defaultSystemPrompt, logger),
		companyContext: loadOrDefault(cfg.CompanyContextPath, defaultCompanyContext, logger),
		logger:         logger.With("component", "genai"),
	}
}

// GenerateEmail drafts one email for the lead according to the plan.
// Feedback, when non-empty, carries revision notes from a rejected draft.
// A nil result means the completion could not be parsed into an email.
func (g *Generator) GenerateEmail(ctx context.Context, lead models.Lead, plan models.Plan, history []models.EmailRecord, kbContext, feedback string) (*models.EmailContent, error) {
	prompt := buildEmailPrompt(lead, plan, history, g.companyContext, kbContext, feedback)

	completion, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate email: %w", err)
	}

	content := parseEmailContent(completion)
	if content == nil {
		g.logger.Warn("completion did not contain a usable email",
			"lead_id", lead.ID, "template", plan.Template)
		return nil, nil
	}

	g.logger.Debug("email drafted",
		"lead_id", lead.ID, "template", plan.Template, "subject", content.Subject)
	return content, nil
}

// AnalyzeContext summarizes a lead's recent conversation into updated CRM
// fields. Unknown status values from the model are dropped rather than
// written back.
func (g *Generator) AnalyzeContext(ctx context.Context, lead models.Lead, history []models.EmailRecord, notes []string) (*ContextUpdate, error) {
	prompt := buildAnalysisPrompt(lead, history, notes)

	completion, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze conversation: %w", err)
	}

	start := strings.Index(completion, "{")
	end := strings.LastIndex(completion, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("analysis completion contained no JSON object")
	}

	parsed := gjson.Parse(completion[start : end+1])
	update := &ContextUpdate{
		LastConversation: strings.TrimSpace(parsed.Get("last_conversation").String()),
		Status:           strings.TrimSpace(parsed.Get("status").String()),
		NextAction:       strings.TrimSpace(parsed.Get("next_action").String()),
	}
	if update.LastConversation == "" {
		return nil, fmt.Errorf("analysis completion missing summary")
	}

	switch update.Status {
	case models.StatusActive, models.StatusNurture, models.StatusNotActive:
	default:
		update.Status = ""
	}

	return update, nil
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(g.systemPrompt),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(1024),
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func loadOrDefault(path, fallback string, logger *slog.Logger) string {
	if path == "" {
		return fallback
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("failed to read prompt file, using default", "path", path, "error", err)
		return fallback
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return fallback
}
