package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/apexhq/salespilot/internal/crm"
	"github.com/apexhq/salespilot/internal/database"
	"github.com/apexhq/salespilot/internal/draftstore"
	"github.com/apexhq/salespilot/internal/genai"
	"github.com/apexhq/salespilot/internal/mailer"
	"github.com/apexhq/salespilot/pkg/models"
)

const (
	emailHistoryLimit  = 5
	contextSyncLimit   = 10
	runKindDailyCheck  = "daily_check"
	runKindContextSync = "context_sync"
)

// CRMClient is the slice of the CRM API the agent needs.
type CRMClient interface {
	PendingLeads(ctx context.Context, day time.Time) ([]models.Lead, error)
	ActiveLeads(ctx context.Context, limit int) ([]models.Lead, error)
	EnrichedEmails(ctx context.Context, leadID string, limit int) ([]models.EmailRecord, error)
	Notes(ctx context.Context, leadID string) ([]crm.Note, error)
	AddNote(ctx context.Context, leadID, content string) error
	UpdateLead(ctx context.Context, leadID string, fields map[string]string) error
}

// Mailer sends email and resolves conversation threads.
type Mailer interface {
	FindThread(ctx context.Context, address string) (*mailer.ThreadContext, error)
	Send(ctx context.Context, to, subject, htmlBody string, thread *mailer.ThreadContext) error
}

// Generator drafts emails and conversation summaries.
type Generator interface {
	GenerateEmail(ctx context.Context, lead models.Lead, plan models.Plan, history []models.EmailRecord, kbContext, feedback string) (*models.EmailContent, error)
	AnalyzeContext(ctx context.Context, lead models.Lead, history []models.EmailRecord, notes []string) (*genai.ContextUpdate, error)
}

// ContextProvider supplies extra prompt context for a lead. Optional.
type ContextProvider interface {
	ContextForLead(ctx context.Context, lead models.Lead) string
}

// Notifier delivers cards and status lines to the approval channel.
type Notifier interface {
	NotifyDraft(ctx context.Context, draft models.Draft) error
	NotifyFailure(ctx context.Context, draft models.Draft) error
	NotifyReview(ctx context.Context, lead models.Lead, reason string) error
	NotifyInfo(ctx context.Context, text string) error
}

// Planner decides the next outreach step for a lead.
type Planner interface {
	NextStep(lead models.Lead, emails []models.EmailRecord, now time.Time) (models.Plan, error)
	RescheduleAfterSend(lead models.Lead, emails []models.EmailRecord, now time.Time) map[string]string
}

// RunSummary is the outcome of one daily check.
type RunSummary struct {
	LeadsChecked  int
	DraftsCreated int
	Reviews       int
	Errors        int
}

// Deps dependencies for the agent
type Deps struct {
	CRM      CRMClient
	Mailer   Mailer
	Gen      Generator
	Planner  Planner
	Drafts   *draftstore.Store
	DB       *database.DB
	Context  ContextProvider
	Logger   *slog.Logger
	Now      func() time.Time
}

// Agent runs the outreach workflows: the daily check that turns due leads
// into drafts, the send path after approval, and the CRM context sync.
type Agent struct {
	crm      CRMClient
	mailer   Mailer
	gen      Generator
	planner  Planner
	drafts   *draftstore.Store
	db       *database.DB
	context  ContextProvider
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// New creates the agent. The notifier is attached separately because the
// approval bot and the agent reference each other.
func New(deps Deps) *Agent {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Agent{
		crm:     deps.CRM,
		mailer:  deps.Mailer,
		gen:     deps.Gen,
		planner: deps.Planner,
		drafts:  deps.Drafts,
		db:      deps.DB,
		context: deps.Context,
		logger:  deps.Logger.With("component", "orchestrator"),
		now:     now,
	}
}

// SetNotifier attaches the approval-channel notifier.
func (a *Agent) SetNotifier(n Notifier) {
	a.notifier = n
}

// RunDailyCheck plans every lead due today and produces a draft card per
// planned email. Failures on individual leads are reported and skipped so
// one bad lead cannot block the batch.
func (a *Agent) RunDailyCheck(ctx context.Context) (RunSummary, error) {
	started := a.now()

	if _, err := a.drafts.Cleanup(0); err != nil {
		a.logger.Warn("draft cleanup failed", "error", err)
	}

	leads, err := a.crm.PendingLeads(ctx, started)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to fetch due leads: %w", err)
	}

	summary := RunSummary{LeadsChecked: len(leads)}
	for _, lead := range leads {
		if err := a.processLead(ctx, lead, &summary); err != nil {
			summary.Errors++
			a.logger.Error("failed to process lead",
				"lead_id", lead.ID, "email", lead.Email, "error", err)
		}
	}

	a.recordRun(runKindDailyCheck, started, summary)
	a.logger.Info("daily check complete",
		"leads", summary.LeadsChecked,
		"drafts", summary.DraftsCreated,
		"reviews", summary.Reviews,
		"errors", summary.Errors)
	return summary, nil
}

func (a *Agent) processLead(ctx context.Context, lead models.Lead, summary *RunSummary) error {
	// A broken email history must not stall the cadence. With no emails the
	// planner falls back to the status-based drip branch.
	emails, err := a.crm.EnrichedEmails(ctx, lead.ID, emailHistoryLimit)
	if err != nil {
		a.logger.Warn("failed to fetch email history", "lead_id", lead.ID, "error", err)
		emails = nil
	}

	plan, err := a.planner.NextStep(lead, emails, a.now())
	if err != nil {
		return err
	}

	switch plan.Kind {
	case models.PlanNone:
		a.logger.Debug("no action due", "lead_id", lead.ID, "reason", plan.Reason)
		return nil

	case models.PlanReview:
		summary.Reviews++
		if a.notifier != nil {
			return a.notifier.NotifyReview(ctx, lead, plan.Reason)
		}
		return nil
	}

	content, err := a.gen.GenerateEmail(ctx, lead, plan, emails, a.leadContext(ctx, lead), "")
	if err != nil || content == nil {
		if err != nil {
			a.logger.Error("draft generation failed", "lead_id", lead.ID, "error", err)
		}
		// Park a placeholder so the rep can retry from the card.
		content = &models.EmailContent{Subject: "Generation Error", Body: "Failed"}
		draft := models.Draft{Lead: lead, Plan: plan, Content: *content}
		id, saveErr := a.drafts.Save(draft)
		if saveErr != nil {
			return saveErr
		}
		draft.ID = id
		if a.notifier != nil {
			return a.notifier.NotifyFailure(ctx, draft)
		}
		return nil
	}

	draft := models.Draft{Lead: lead, Plan: plan, Content: *content}
	id, err := a.drafts.Save(draft)
	if err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	draft.ID = id

	summary.DraftsCreated++
	if a.notifier != nil {
		return a.notifier.NotifyDraft(ctx, draft)
	}
	return nil
}

// leadContext gathers optional retrieval context. Absence is not an error.
func (a *Agent) leadContext(ctx context.Context, lead models.Lead) string {
	if a.context == nil {
		return ""
	}
	return a.context.ContextForLead(ctx, lead)
}

func (a *Agent) recordRun(kind string, started time.Time, summary RunSummary) {
	if a.db == nil {
		return
	}
	err := a.db.RecordRun(database.RunSummary{
		Kind:          kind,
		LeadsChecked:  summary.LeadsChecked,
		DraftsCreated: summary.DraftsCreated,
		Errors:        summary.Errors,
		StartedAt:     started,
		FinishedAt:    a.now(),
	})
	if err != nil {
		a.logger.Warn("failed to record run summary", "error", err)
	}
}

// ExecuteSend sends an approved draft and does the post-send CRM
// bookkeeping. The returned result is one of the send result constants.
func (a *Agent) ExecuteSend(ctx context.Context, draftID string) (string, error) {
	draft, err := a.drafts.Get(draftID)
	if err != nil {
		return "", err
	}
	lead := draft.Lead

	thread, err := a.mailer.FindThread(ctx, lead.Email)
	if err != nil {
		a.logger.Warn("thread lookup failed, sending unthreaded",
			"lead_id", lead.ID, "error", err)
		thread = nil
	}

	htmlBody := strings.ReplaceAll(draft.Content.Body, "\n", "<br>")
	if err := a.mailer.Send(ctx, lead.Email, draft.Content.Subject, htmlBody, thread); err != nil {
		a.recordSend(draft, models.SendResultFailed, err.Error())
		return models.SendResultFailed, fmt.Errorf("failed to send email: %w", err)
	}

	// Post-send bookkeeping is best effort: the email is already out.
	note := fmt.Sprintf("Automated outreach sent: %q (%s)", draft.Content.Subject, draft.Plan.Template)
	if err := a.crm.AddNote(ctx, lead.ID, note); err != nil {
		a.logger.Warn("failed to add CRM note", "lead_id", lead.ID, "error", err)
	}

	emails, err := a.crm.EnrichedEmails(ctx, lead.ID, emailHistoryLimit)
	if err != nil {
		a.logger.Warn("failed to refresh email history", "lead_id", lead.ID, "error", err)
	}
	if fields := a.planner.RescheduleAfterSend(lead, emails, a.now()); len(fields) > 0 {
		if err := a.crm.UpdateLead(ctx, lead.ID, fields); err != nil {
			a.logger.Warn("failed to reschedule lead", "lead_id", lead.ID, "error", err)
		}
	}

	a.recordSend(draft, models.SendResultSent, "")
	if err := a.drafts.Delete(draftID); err != nil {
		a.logger.Warn("failed to delete sent draft", "draft_id", draftID, "error", err)
	}

	a.logger.Info("email sent", "lead_id", lead.ID, "to", lead.Email,
		"template", draft.Plan.Template)
	return models.SendResultSent, nil
}

// SkipDraft pushes a lead to tomorrow and drops the draft.
func (a *Agent) SkipDraft(ctx context.Context, draftID string) error {
	draft, err := a.drafts.Get(draftID)
	if err != nil {
		return err
	}
	lead := draft.Lead

	if err := a.crm.AddNote(ctx, lead.ID, "Outreach skipped by rep, retrying tomorrow"); err != nil {
		a.logger.Warn("failed to add skip note", "lead_id", lead.ID, "error", err)
	}

	tomorrow := a.now().AddDate(0, 0, 1).Format("2006-01-02")
	err = a.crm.UpdateLead(ctx, lead.ID, map[string]string{
		"Next_Action":      "Skipped - Retry Tomorrow",
		"Next_Action_Date": tomorrow,
	})
	if err != nil {
		a.logger.Warn("failed to reschedule skipped lead", "lead_id", lead.ID, "error", err)
	}

	a.recordSend(draft, models.SendResultSkipped, "")
	return a.drafts.Delete(draftID)
}

// RegenerateDraft produces a fresh draft for the same plan, optionally
// steered by rep feedback, and returns the updated draft.
func (a *Agent) RegenerateDraft(ctx context.Context, draftID, feedback string) (models.Draft, error) {
	draft, err := a.drafts.Get(draftID)
	if err != nil {
		return models.Draft{}, err
	}

	emails, err := a.crm.EnrichedEmails(ctx, draft.Lead.ID, emailHistoryLimit)
	if err != nil {
		a.logger.Warn("failed to fetch email history for regeneration",
			"lead_id", draft.Lead.ID, "error", err)
	}

	content, err := a.gen.GenerateEmail(ctx, draft.Lead, draft.Plan, emails,
		a.leadContext(ctx, draft.Lead), feedback)
	if err != nil {
		return models.Draft{}, fmt.Errorf("failed to regenerate draft: %w", err)
	}
	if content == nil {
		return models.Draft{}, fmt.Errorf("regeneration produced no usable email")
	}

	if err := a.drafts.UpdateContent(draftID, *content); err != nil {
		return models.Draft{}, err
	}
	draft.Content = *content
	return draft, nil
}

// EditDraft replaces a draft's content with rep-provided text.
func (a *Agent) EditDraft(draftID string, content models.EmailContent) (models.Draft, error) {
	if err := a.drafts.UpdateContent(draftID, content); err != nil {
		return models.Draft{}, err
	}
	return a.drafts.Get(draftID)
}

// SyncContext refreshes the conversation summary fields of active leads from
// their recent emails and notes. Returns how many leads were updated.
func (a *Agent) SyncContext(ctx context.Context) (int, error) {
	started := a.now()

	leads, err := a.crm.ActiveLeads(ctx, contextSyncLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch active leads: %w", err)
	}

	updated := 0
	errors := 0
	for _, lead := range leads {
		if err := a.syncLead(ctx, lead); err != nil {
			errors++
			a.logger.Error("context sync failed", "lead_id", lead.ID, "error", err)
			continue
		}
		updated++
	}

	a.recordRun(runKindContextSync, started, RunSummary{LeadsChecked: len(leads), Errors: errors})
	return updated, nil
}

func (a *Agent) syncLead(ctx context.Context, lead models.Lead) error {
	emails, err := a.crm.EnrichedEmails(ctx, lead.ID, emailHistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch email history: %w", err)
	}

	var noteTexts []string
	if notes, err := a.crm.Notes(ctx, lead.ID); err != nil {
		a.logger.Warn("failed to fetch notes", "lead_id", lead.ID, "error", err)
	} else {
		for _, note := range notes {
			noteTexts = append(noteTexts, note.Content)
		}
	}

	update, err := a.gen.AnalyzeContext(ctx, lead, emails, noteTexts)
	if err != nil {
		return err
	}

	fields := map[string]string{"Last_Conversation": update.LastConversation}
	if update.Status != "" {
		fields["Reachout_Plan_Status"] = update.Status
	}
	if update.NextAction != "" {
		fields["Next_Action"] = update.NextAction
	}
	return a.crm.UpdateLead(ctx, lead.ID, fields)
}

func (a *Agent) recordSend(draft models.Draft, result, detail string) {
	if a.db == nil {
		return
	}
	err := a.db.RecordSend(database.SendEntry{
		LeadID:    draft.Lead.ID,
		LeadEmail: draft.Lead.Email,
		Subject:   draft.Content.Subject,
		Template:  draft.Plan.Template,
		Result:    result,
		Detail:    detail,
		SentAt:    a.now(),
	})
	if err != nil {
		a.logger.Warn("failed to record send outcome", "error", err)
	}
}
