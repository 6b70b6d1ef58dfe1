package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/apexhq/salespilot/internal/formatter"
	"github.com/apexhq/salespilot/internal/leadfinder"
	"github.com/apexhq/salespilot/pkg/models"
)

const helpText = `🤖 <b>Outreach agent</b>

/checkleads - plan today's due leads and draft emails
/findleads - scan marketing contacts for engaged leads
/update - refresh CRM conversation summaries
/status - pending drafts and recent activity
/help - this message

Draft cards carry Approve, Edit and Skip buttons. Edit asks for a reply:
send feedback to regenerate, or start with "Subject:" to replace the text
yourself.`

func (b *Bot) handleStart(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || !b.authorized(update.Message.Chat.ID) {
		return
	}
	if err := b.send(ctx, helpText, nil); err != nil {
		b.logger.Error("failed to send help", "error", err)
	}
}

func (b *Bot) handleCheckLeads(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || !b.authorized(update.Message.Chat.ID) {
		return
	}
	// Draft cards thread under this run message so each run reads as one
	// conversation in the chat.
	anchor, err := b.sendMessage(ctx, "🔍 Checking due leads…", nil)
	if err != nil {
		b.logger.Error("failed to send run message", "error", err)
		return
	}
	b.setRunAnchor(anchor.ID)

	// Planning and generation take a while; keep the polling loop free.
	go func() {
		summary, err := b.agent.RunDailyCheck(ctx)
		if err != nil {
			b.reply(ctx, "❌ Lead check failed: "+html.EscapeString(err.Error()))
			b.setRunAnchor(0)
			return
		}
		b.reply(ctx, fmt.Sprintf(
			"✅ Checked %d due leads: %d drafts, %d for review, %d errors.",
			summary.LeadsChecked, summary.DraftsCreated, summary.Reviews, summary.Errors))
		b.setRunAnchor(0)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || !b.authorized(update.Message.Chat.ID) {
		return
	}
	b.reply(ctx, "🔄 Refreshing lead context…")

	go func() {
		updated, err := b.agent.SyncContext(ctx)
		if err != nil {
			b.reply(ctx, "❌ Context sync failed: "+html.EscapeString(err.Error()))
			return
		}
		b.reply(ctx, fmt.Sprintf("✅ Updated conversation context for %d leads.", updated))
	}()
}

func (b *Bot) handleFindLeads(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || !b.authorized(update.Message.Chat.ID) {
		return
	}
	if b.finder == nil {
		b.reply(ctx, "Lead finder is not configured.")
		return
	}
	b.reply(ctx, "🔎 Scanning marketing contacts…")

	go func() {
		digest, err := b.finder.Run(ctx, time.Now())
		if err != nil {
			b.reply(ctx, "❌ Lead finder failed: "+html.EscapeString(err.Error()))
			return
		}

		if b.outputDir != "" {
			if _, err := digest.WriteFiles(b.outputDir); err != nil {
				b.logger.Warn("failed to write digest files", "error", err)
			}
		}
		b.emailDigest(ctx, digest)
		b.reply(ctx, digestSummary(digest))
	}()
}

func (b *Bot) emailDigest(ctx context.Context, digest *leadfinder.Digest) {
	if b.mailer == nil || len(b.recipients) == 0 {
		return
	}

	htmlBody, err := digest.RenderHTML()
	if err != nil {
		b.logger.Warn("failed to render digest email", "error", err)
		return
	}

	subject := fmt.Sprintf("Engaged leads digest - %s", digest.GeneratedAt.Format("Jan 2"))
	for _, recipient := range b.recipients {
		if err := b.mailer.Send(ctx, recipient, subject, htmlBody, nil); err != nil {
			b.logger.Warn("failed to email digest", "recipient", recipient, "error", err)
		}
	}
}

// digestSummary renders a short chat message for a lead-finder run.
func digestSummary(digest *leadfinder.Digest) string {
	var s strings.Builder
	fmt.Fprintf(&s, "🔎 Scanned %d contacts, %d qualified.\n",
		digest.ContactsScanned, digest.Qualified)

	for i, lead := range digest.Leads {
		fmt.Fprintf(&s, "%d. <b>%s</b> (%s) - score %d\n",
			i+1,
			html.EscapeString(lead.Contact.Name()),
			html.EscapeString(lead.Contact.Email),
			lead.Score)
	}
	if len(digest.Leads) == 0 {
		s.WriteString("No engaged stale leads found today.")
	}
	return s.String()
}

func (b *Bot) handleStatus(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || !b.authorized(update.Message.Chat.ID) {
		return
	}

	var s strings.Builder
	fmt.Fprintf(&s, "📋 <b>Status</b>\nPending drafts: %d\n", b.drafts.Count())

	if b.db != nil {
		if last, err := b.db.LastRun("daily_check"); err == nil && last != nil {
			fmt.Fprintf(&s, "Last check: %s (%d leads, %d drafts, %d errors)\n",
				last.FinishedAt.Format("Jan 2 15:04"),
				last.LeadsChecked, last.DraftsCreated, last.Errors)
		}
		if counts, err := b.db.SendsSince(time.Now().Add(-24 * time.Hour)); err == nil && len(counts) > 0 {
			fmt.Fprintf(&s, "Last 24h: %d sent, %d failed, %d skipped\n",
				counts[models.SendResultSent],
				counts[models.SendResultFailed],
				counts[models.SendResultSkipped])
		}
	}

	if err := b.send(ctx, s.String(), nil); err != nil {
		b.logger.Error("failed to send status", "error", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, api *bot.Bot, update *tgmodels.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	cb, err := formatter.DecodeCallback(query.Data)
	if err != nil {
		b.logger.Warn("unreadable callback", "data", query.Data, "error", err)
		b.answerCallback(ctx, api, query.ID, "Unknown action")
		return
	}

	switch cb.Action {
	case models.CallbackApprove:
		b.answerCallback(ctx, api, query.ID, "Sending…")
		b.clearKeyboard(ctx, api, query)
		go func() {
			result, err := b.agent.ExecuteSend(ctx, cb.DraftID)
			if err != nil {
				b.reply(ctx, fmt.Sprintf("❌ Send failed (%s): %s",
					result, html.EscapeString(err.Error())))
				return
			}
			b.reply(ctx, "📤 Email sent.")
		}()

	case models.CallbackSkip:
		b.answerCallback(ctx, api, query.ID, "Skipped")
		b.clearKeyboard(ctx, api, query)
		if err := b.agent.SkipDraft(ctx, cb.DraftID); err != nil {
			b.reply(ctx, "❌ Skip failed: "+html.EscapeString(err.Error()))
			return
		}
		b.reply(ctx, "⏭ Skipped, lead rescheduled for tomorrow.")

	case models.CallbackEdit:
		b.answerCallback(ctx, api, query.ID, "")
		b.setPendingEdit(b.chatID, cb.DraftID)
		b.reply(ctx, "✏️ Reply with feedback to regenerate, or start your message "+
			"with \"Subject:\" to replace subject and body yourself.")

	case models.CallbackRetryGen:
		b.answerCallback(ctx, api, query.ID, "Retrying…")
		b.clearKeyboard(ctx, api, query)
		go b.regenerate(ctx, cb.DraftID, "")

	default:
		b.answerCallback(ctx, api, query.ID, "Unknown action")
	}
}

// handleDefault catches free-text messages, which only matter while an edit
// prompt is outstanding.
func (b *Bot) handleDefault(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if !b.authorized(update.Message.Chat.ID) {
		return
	}

	draftID, ok := b.takePendingEdit(update.Message.Chat.ID)
	if !ok {
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if subject, body, ok := parseManualEdit(text); ok {
		draft, err := b.agent.EditDraft(draftID, models.EmailContent{Subject: subject, Body: body})
		if err != nil {
			b.reply(ctx, "❌ Edit failed: "+html.EscapeString(err.Error()))
			return
		}
		if err := b.NotifyDraft(ctx, draft); err != nil {
			b.logger.Error("failed to send updated card", "error", err)
		}
		return
	}

	b.reply(ctx, "🔄 Regenerating with your feedback…")
	go b.regenerate(ctx, draftID, text)
}

func (b *Bot) regenerate(ctx context.Context, draftID, feedback string) {
	draft, err := b.agent.RegenerateDraft(ctx, draftID, feedback)
	if err != nil {
		b.reply(ctx, "❌ Regeneration failed: "+html.EscapeString(err.Error()))
		return
	}
	if err := b.NotifyDraft(ctx, draft); err != nil {
		b.logger.Error("failed to send regenerated card", "error", err)
	}
}

// parseManualEdit splits a "Subject: ..." message into subject and body.
func parseManualEdit(text string) (subject, body string, ok bool) {
	if !strings.HasPrefix(strings.ToLower(text), "subject:") {
		return "", "", false
	}

	lines := strings.SplitN(text, "\n", 2)
	subject = strings.TrimSpace(lines[0][len("subject:"):])
	if len(lines) > 1 {
		body = strings.TrimSpace(lines[1])
	}
	if subject == "" || body == "" {
		return "", "", false
	}
	return subject, body, true
}

func (b *Bot) reply(ctx context.Context, text string) {
	if err := b.send(ctx, text, nil); err != nil {
		b.logger.Error("failed to send reply", "error", err)
	}
}

func (b *Bot) answerCallback(ctx context.Context, api *bot.Bot, queryID, text string) {
	_, err := api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
	})
	if err != nil {
		b.logger.Warn("failed to answer callback", "error", err)
	}
}

// clearKeyboard removes the buttons from a card once its action is taken.
func (b *Bot) clearKeyboard(ctx context.Context, api *bot.Bot, query *tgmodels.CallbackQuery) {
	msg := query.Message.Message
	if msg == nil {
		return
	}

	_, err := api.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		ReplyMarkup: &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{}},
	})
	if err != nil {
		b.logger.Warn("failed to clear keyboard", "error", err)
	}
}
