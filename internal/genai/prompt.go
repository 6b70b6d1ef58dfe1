package genai

import (
	"fmt"
	"strings"

	"github.com/apexhq/salespilot/pkg/models"
)

const defaultSystemPrompt = `You are a sales development representative writing
short, personal outreach emails. Keep every email under 150 words, reference
the prospect's actual situation, and end with one clear low-friction ask.
Respond with a JSON object of the form {"subject": "...", "body": "..."} and
nothing else.`

const defaultCompanyContext = "We help B2B teams automate repetitive sales busywork."

// Human-readable labels for the drip follow-up templates. The model gets a
// plan label rather than the raw template name.
var templateLabels = map[string]string{
	models.TemplateActiveResponse: "REPLY_TO_PROSPECT",
	models.TemplateReEngagement:   "RE_ENGAGEMENT",
	models.TemplateNurtureMonthly: "NURTURE_UPDATE",
	models.TemplateDay0Intro:      "COLD_INTRO",
	models.TemplateDay2Followup:   "FOLLOW_UP_NO_RESPONSE",
	models.TemplateDay7Followup:   "FOLLOW_UP_NO_RESPONSE",
	models.TemplateDay14ValueAdd:  "VALUE_ADD_NO_RESPONSE",
	models.TemplateDay28CheckIn:   "FOLLOW_UP_NO_RESPONSE",
	models.TemplateDay35Bump:      "SHORT_BUMP_NO_RESPONSE",
	models.TemplateDay40Breakup:   "BREAKUP_EMAIL",
}

// buildEmailPrompt assembles the user prompt for one email draft.
func buildEmailPrompt(lead models.Lead, plan models.Plan, history []models.EmailRecord, companyContext, kbContext, feedback string) string {
	var b strings.Builder

	b.WriteString("## About us\n")
	b.WriteString(companyContext)
	b.WriteString("\n\n## Prospect\n")
	fmt.Fprintf(&b, "Name: %s\nCompany: %s\nEmail: %s\nStatus: %s\n",
		lead.FullName(), lead.Company, lead.Email, lead.Status)
	fmt.Fprintf(&b, "Notes: %s\n", lead.FullDescription())

	fmt.Fprintf(&b, "\n## Task\nWrite a %s email. Reason: %s\n",
		labelForTemplate(plan.Template), plan.Reason)

	if plan.Context != nil {
		b.WriteString("\n## Their latest reply (respond to this directly)\n")
		fmt.Fprintf(&b, "Date: %s\nSubject: %s\n%s\n",
			plan.Context.LastReplyDate, plan.Context.LastReplySubject, plan.Context.LastReplyBody)
	}

	if len(history) > 0 {
		b.WriteString("\n## Recent conversation, newest first\n")
		for _, email := range history {
			content := email.CleanContent
			if content == "" {
				content = email.Content
			}
			fmt.Fprintf(&b, "[%s | %s] %s\n%s\n---\n",
				email.Date(), email.Direction, email.Subject, truncate(content, 800))
		}
	}

	if kbContext != "" {
		b.WriteString("\n## Reference material\n")
		b.WriteString(kbContext)
		b.WriteString("\n")
	}

	if feedback != "" {
		b.WriteString("\n## Revision feedback from the sales rep\n")
		b.WriteString(feedback)
		b.WriteString("\n")
	}

	return b.String()
}

// buildAnalysisPrompt assembles the prompt for summarizing a lead's recent
// conversation into updated CRM fields.
func buildAnalysisPrompt(lead models.Lead, history []models.EmailRecord, notes []string) string {
	var b strings.Builder

	b.WriteString("Summarize the state of this sales conversation.\n\n")
	fmt.Fprintf(&b, "Prospect: %s at %s (status: %s)\n", lead.FullName(), lead.Company, lead.Status)
	fmt.Fprintf(&b, "Current notes: %s\n", lead.FullDescription())

	if len(history) > 0 {
		b.WriteString("\nEmails, newest first:\n")
		for _, email := range history {
			content := email.CleanContent
			if content == "" {
				content = email.Content
			}
			fmt.Fprintf(&b, "[%s | %s] %s\n%s\n---\n",
				email.Date(), email.Direction, email.Subject, truncate(content, 600))
		}
	}

	if len(notes) > 0 {
		b.WriteString("\nCRM notes:\n")
		for _, note := range notes {
			b.WriteString("- " + truncate(note, 300) + "\n")
		}
	}

	b.WriteString(`
Respond with a JSON object and nothing else:
{"last_conversation": "one paragraph summary of where things stand",
 "status": "Active|Nurture|Not Active",
 "next_action": "short recommended next step"}`)

	return b.String()
}

func labelForTemplate(template string) string {
	if label, ok := templateLabels[template]; ok {
		return label
	}
	return "FOLLOW_UP"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
