package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/apexhq/salespilot/internal/database"
	"github.com/apexhq/salespilot/internal/draftstore"
	"github.com/apexhq/salespilot/internal/formatter"
	"github.com/apexhq/salespilot/internal/leadfinder"
	"github.com/apexhq/salespilot/internal/orchestrator"
	"github.com/apexhq/salespilot/pkg/models"
)

// Bot is the Telegram approval surface for the outreach agent. All traffic
// is restricted to the configured rep chat.
type Bot struct {
	api        *bot.Bot
	chatID     int64
	agent      *orchestrator.Agent
	drafts     *draftstore.Store
	db         *database.DB
	finder     *leadfinder.Finder
	mailer     orchestrator.Mailer
	recipients []string
	outputDir  string
	logger     *slog.Logger

	mu           sync.Mutex
	pendingEdits map[int64]string // chat ID -> draft ID awaiting a reply
	runAnchor    int              // message ID the current run's cards thread under
}

// Deps dependencies for the bot
type Deps struct {
	Token      string
	ChatID     int64
	Agent      *orchestrator.Agent
	Drafts     *draftstore.Store
	DB         *database.DB
	Finder     *leadfinder.Finder
	Mailer     orchestrator.Mailer
	Recipients []string
	OutputDir  string
	Logger     *slog.Logger
}

// New creates the bot and registers all handlers.
func New(deps Deps) (*Bot, error) {
	b := &Bot{
		chatID:       deps.ChatID,
		agent:        deps.Agent,
		drafts:       deps.Drafts,
		db:           deps.DB,
		finder:       deps.Finder,
		mailer:       deps.Mailer,
		recipients:   deps.Recipients,
		outputDir:    deps.OutputDir,
		logger:       deps.Logger.With("component", "telegram"),
		pendingEdits: map[int64]string{},
	}

	api, err := bot.New(deps.Token, bot.WithDefaultHandler(b.handleDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	b.api = api
	b.registerHandlers()
	return b, nil
}

// Start runs the long-polling loop until the context is canceled.
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("bot started", "chat_id", b.chatID)
	b.api.Start(ctx)
}

func (b *Bot) registerHandlers() {
	commands := map[string]bot.HandlerFunc{
		"/start":      b.handleStart,
		"/help":       b.handleStart,
		"/status":     b.handleStatus,
		"/checkleads": b.handleCheckLeads,
		"/findleads":  b.handleFindLeads,
		"/update":     b.handleUpdate,
	}
	for cmd, handler := range commands {
		b.api.RegisterHandler(bot.HandlerTypeMessageText, cmd, bot.MatchTypeExact, handler)
	}

	// Callback payloads are JSON objects, so the prefix match is on "{".
	b.api.RegisterHandler(bot.HandlerTypeCallbackQueryData, "{", bot.MatchTypePrefix, b.handleCallback)
}

// authorized drops updates from chats other than the configured one.
func (b *Bot) authorized(chatID int64) bool {
	if chatID != b.chatID {
		b.logger.Warn("update from unauthorized chat ignored", "chat_id", chatID)
		return false
	}
	return true
}

// NotifyDraft sends a draft card with approval buttons.
func (b *Bot) NotifyDraft(ctx context.Context, draft models.Draft) error {
	return b.send(ctx, formatter.DraftCard(draft), formatter.DraftKeyboard(draft.ID))
}

// NotifyFailure sends a failed-generation card with a retry button.
func (b *Bot) NotifyFailure(ctx context.Context, draft models.Draft) error {
	return b.send(ctx, formatter.FailureCard(draft), formatter.RetryKeyboard(draft.ID))
}

// NotifyReview sends a manual-review card.
func (b *Bot) NotifyReview(ctx context.Context, lead models.Lead, reason string) error {
	return b.send(ctx, formatter.ReviewCard(lead, reason), nil)
}

// NotifyInfo sends a plain status line.
func (b *Bot) NotifyInfo(ctx context.Context, text string) error {
	return b.send(ctx, text, nil)
}

func (b *Bot) send(ctx context.Context, text string, keyboard *tgmodels.InlineKeyboardMarkup) error {
	_, err := b.sendMessage(ctx, text, keyboard)
	return err
}

// sendMessage sends to the rep chat, threading under the current run anchor
// when one is set, and returns the sent message.
func (b *Bot) sendMessage(ctx context.Context, text string, keyboard *tgmodels.InlineKeyboardMarkup) (*tgmodels.Message, error) {
	msg, err := b.api.SendMessage(ctx, sendParams(b.chatID, text, keyboard, b.runAnchorID()))
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return msg, nil
}

// sendParams builds message params. A non-zero replyTo threads the message
// under that message ID.
func sendParams(chatID int64, text string, keyboard *tgmodels.InlineKeyboardMarkup, replyTo int) *bot.SendMessageParams {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if replyTo != 0 {
		params.ReplyParameters = &tgmodels.ReplyParameters{MessageID: replyTo}
	}
	return params
}

// setRunAnchor marks the message the current run's cards reply to. Zero
// clears it.
func (b *Bot) setRunAnchor(messageID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runAnchor = messageID
}

func (b *Bot) runAnchorID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runAnchor
}

func (b *Bot) setPendingEdit(chatID int64, draftID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingEdits[chatID] = draftID
}

func (b *Bot) takePendingEdit(chatID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	draftID, ok := b.pendingEdits[chatID]
	if ok {
		delete(b.pendingEdits, chatID)
	}
	return draftID, ok
}
