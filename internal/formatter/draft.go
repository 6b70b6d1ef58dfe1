package formatter

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/apexhq/salespilot/pkg/models"
)

// Telegram caps message text at 4096 chars; leave headroom for the footer.
const maxCardLength = 4000

// DraftCard renders a pending draft as a Telegram HTML message.
func DraftCard(draft models.Draft) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📧 <b>%s</b>", html.EscapeString(draft.Lead.FullName()))
	if draft.Lead.Company != "" {
		fmt.Fprintf(&b, " · %s", html.EscapeString(draft.Lead.Company))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(draft.Lead.Email))
	fmt.Fprintf(&b, "Plan: %s\n\n", html.EscapeString(draft.Plan.Reason))

	fmt.Fprintf(&b, "<b>Subject:</b> %s\n\n", html.EscapeString(draft.Content.Subject))
	b.WriteString(html.EscapeString(draft.Content.Body))

	return truncateCard(b.String())
}

// FailureCard renders a draft whose generation failed, offering a retry.
func FailureCard(draft models.Draft) string {
	return fmt.Sprintf(
		"⚠️ <b>Draft generation failed</b>\n%s (%s)\nPlan: %s\n\nRetry or skip this lead.",
		html.EscapeString(draft.Lead.FullName()),
		html.EscapeString(draft.Lead.Email),
		html.EscapeString(draft.Plan.Reason),
	)
}

// ReviewCard renders a lead the agent wants a human to look at.
func ReviewCard(lead models.Lead, reason string) string {
	return fmt.Sprintf(
		"👀 <b>Needs your attention</b>\n%s · %s\n%s\n\nReason: %s",
		html.EscapeString(lead.FullName()),
		html.EscapeString(lead.Company),
		html.EscapeString(lead.Email),
		html.EscapeString(reason),
	)
}

// DraftKeyboard builds the approval buttons for a draft card.
func DraftKeyboard(draftID string) *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "✅ Approve & Send", CallbackData: EncodeCallback(models.CallbackApprove, draftID)},
			},
			{
				{Text: "✏️ Edit", CallbackData: EncodeCallback(models.CallbackEdit, draftID)},
				{Text: "⏭ Skip", CallbackData: EncodeCallback(models.CallbackSkip, draftID)},
			},
		},
	}
}

// RetryKeyboard builds the buttons for a failed-generation card.
func RetryKeyboard(draftID string) *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "🔄 Retry", CallbackData: EncodeCallback(models.CallbackRetryGen, draftID)},
				{Text: "⏭ Skip", CallbackData: EncodeCallback(models.CallbackSkip, draftID)},
			},
		},
	}
}

// EncodeCallback packs an action and draft ID into callback data.
func EncodeCallback(action models.CallbackAction, draftID string) string {
	data, _ := json.Marshal(models.CallbackData{Action: action, DraftID: draftID})
	return string(data)
}

// DecodeCallback unpacks callback data produced by EncodeCallback.
func DecodeCallback(data string) (models.CallbackData, error) {
	var cb models.CallbackData
	if err := json.Unmarshal([]byte(data), &cb); err != nil {
		return models.CallbackData{}, fmt.Errorf("failed to decode callback data: %w", err)
	}
	if cb.Action == "" || cb.DraftID == "" {
		return models.CallbackData{}, fmt.Errorf("callback data is incomplete: %s", data)
	}
	return cb, nil
}

// truncateCard trims a card to the Telegram limit without splitting an HTML
// entity.
func truncateCard(text string) string {
	if len(text) <= maxCardLength {
		return text
	}

	cut := text[:maxCardLength]
	if amp := strings.LastIndex(cut, "&"); amp > maxCardLength-8 && !strings.Contains(cut[amp:], ";") {
		cut = cut[:amp]
	}
	return cut + "…"
}
