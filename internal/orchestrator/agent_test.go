package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexhq/salespilot/internal/crm"
	"github.com/apexhq/salespilot/internal/draftstore"
	"github.com/apexhq/salespilot/internal/genai"
	"github.com/apexhq/salespilot/internal/mailer"
	"github.com/apexhq/salespilot/internal/planner"
	"github.com/apexhq/salespilot/pkg/models"
)

var testNow = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

type fakeCRM struct {
	pending   []models.Lead
	emails    []models.EmailRecord
	emailsErr error

	notes   []string
	updates []map[string]string
}

func (f *fakeCRM) PendingLeads(context.Context, time.Time) ([]models.Lead, error) {
	return f.pending, nil
}

func (f *fakeCRM) ActiveLeads(context.Context, int) ([]models.Lead, error) {
	return f.pending, nil
}

func (f *fakeCRM) EnrichedEmails(context.Context, string, int) ([]models.EmailRecord, error) {
	if f.emailsErr != nil {
		return nil, f.emailsErr
	}
	return f.emails, nil
}

func (f *fakeCRM) Notes(context.Context, string) ([]crm.Note, error) {
	return nil, nil
}

func (f *fakeCRM) AddNote(_ context.Context, _, content string) error {
	f.notes = append(f.notes, content)
	return nil
}

func (f *fakeCRM) UpdateLead(_ context.Context, _ string, fields map[string]string) error {
	f.updates = append(f.updates, fields)
	return nil
}

type sentEmail struct {
	to, subject, body string
	threaded          bool
}

type fakeMailer struct {
	sent    []sentEmail
	sendErr error
}

func (f *fakeMailer) FindThread(context.Context, string) (*mailer.ThreadContext, error) {
	return &mailer.ThreadContext{ThreadID: "t1"}, nil
}

func (f *fakeMailer) Send(_ context.Context, to, subject, htmlBody string, thread *mailer.ThreadContext) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, body: htmlBody, threaded: thread != nil})
	return nil
}

type fakeGen struct {
	content  *models.EmailContent
	feedback []string
}

func (f *fakeGen) GenerateEmail(_ context.Context, _ models.Lead, _ models.Plan, _ []models.EmailRecord, _ string, feedback string) (*models.EmailContent, error) {
	f.feedback = append(f.feedback, feedback)
	return f.content, nil
}

func (f *fakeGen) AnalyzeContext(context.Context, models.Lead, []models.EmailRecord, []string) (*genai.ContextUpdate, error) {
	return &genai.ContextUpdate{LastConversation: "Discussed pricing.", Status: models.StatusActive}, nil
}

type fakeNotifier struct {
	drafts   []models.Draft
	failures []models.Draft
	reviews  []string
}

func (f *fakeNotifier) NotifyDraft(_ context.Context, d models.Draft) error {
	f.drafts = append(f.drafts, d)
	return nil
}

func (f *fakeNotifier) NotifyFailure(_ context.Context, d models.Draft) error {
	f.failures = append(f.failures, d)
	return nil
}

func (f *fakeNotifier) NotifyReview(_ context.Context, _ models.Lead, reason string) error {
	f.reviews = append(f.reviews, reason)
	return nil
}

func (f *fakeNotifier) NotifyInfo(context.Context, string) error { return nil }

func testLead() models.Lead {
	return models.Lead{
		ID:          "lead-1",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		Status:      models.StatusNotActive,
		CreatedTime: testNow.AddDate(0, 0, -3).Format("2006-01-02T15:04:05-07:00"),
	}
}

func newTestAgent(t *testing.T, crmClient *fakeCRM, mail *fakeMailer, gen *fakeGen) (*Agent, *draftstore.Store, *fakeNotifier) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	drafts := draftstore.New(filepath.Join(t.TempDir(), "drafts.json"), logger)

	agent := New(Deps{
		CRM:     crmClient,
		Mailer:  mail,
		Gen:     gen,
		Planner: planner.Cadence{},
		Drafts:  drafts,
		Logger:  logger,
		Now:     func() time.Time { return testNow },
	})

	notifier := &fakeNotifier{}
	agent.SetNotifier(notifier)
	return agent, drafts, notifier
}

func TestRunDailyCheckCreatesDraft(t *testing.T) {
	crmClient := &fakeCRM{pending: []models.Lead{testLead()}}
	gen := &fakeGen{content: &models.EmailContent{Subject: "Quick question", Body: "Hi Ada"}}
	agent, drafts, notifier := newTestAgent(t, crmClient, &fakeMailer{}, gen)

	summary, err := agent.RunDailyCheck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.LeadsChecked)
	assert.Equal(t, 1, summary.DraftsCreated)
	assert.Equal(t, 0, summary.Errors)

	require.Len(t, notifier.drafts, 1)
	assert.Equal(t, "Quick question", notifier.drafts[0].Content.Subject)
	assert.Equal(t, models.TemplateDay2Followup, notifier.drafts[0].Plan.Template)
	assert.Equal(t, 1, drafts.Count())
}

func TestRunDailyCheckEmailHistoryFailureFallsToDrip(t *testing.T) {
	crmClient := &fakeCRM{
		pending:   []models.Lead{testLead()},
		emailsErr: fmt.Errorf("email endpoint unavailable"),
	}
	gen := &fakeGen{content: &models.EmailContent{Subject: "Quick question", Body: "Hi Ada"}}
	agent, drafts, notifier := newTestAgent(t, crmClient, &fakeMailer{}, gen)

	summary, err := agent.RunDailyCheck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, 1, summary.DraftsCreated)
	require.Len(t, notifier.drafts, 1)
	assert.Equal(t, models.TemplateDay2Followup, notifier.drafts[0].Plan.Template)
	assert.Equal(t, 1, drafts.Count())
}

func TestRunDailyCheckGenerationFailure(t *testing.T) {
	crmClient := &fakeCRM{pending: []models.Lead{testLead()}}
	agent, drafts, notifier := newTestAgent(t, crmClient, &fakeMailer{}, &fakeGen{content: nil})

	summary, err := agent.RunDailyCheck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.DraftsCreated)
	require.Len(t, notifier.failures, 1)
	assert.Equal(t, "Generation Error", notifier.failures[0].Content.Subject)
	assert.Equal(t, 1, drafts.Count())
}

func TestRunDailyCheckActiveLeadGoesToReview(t *testing.T) {
	lead := testLead()
	lead.Status = models.StatusActive
	crmClient := &fakeCRM{pending: []models.Lead{lead}}
	agent, drafts, notifier := newTestAgent(t, crmClient, &fakeMailer{}, &fakeGen{})

	summary, err := agent.RunDailyCheck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Reviews)
	assert.Len(t, notifier.reviews, 1)
	assert.Equal(t, 0, drafts.Count())
}

func TestApprovalFlow(t *testing.T) {
	crmClient := &fakeCRM{pending: []models.Lead{testLead()}}
	mail := &fakeMailer{}
	gen := &fakeGen{content: &models.EmailContent{Subject: "Quick question", Body: "Hi Ada,\nShort note."}}
	agent, drafts, notifier := newTestAgent(t, crmClient, mail, gen)

	_, err := agent.RunDailyCheck(context.Background())
	require.NoError(t, err)
	draftID := notifier.drafts[0].ID

	result, err := agent.ExecuteSend(context.Background(), draftID)
	require.NoError(t, err)
	assert.Equal(t, models.SendResultSent, result)

	// The body is converted to HTML line breaks.
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "ada@example.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].body, "Hi Ada,<br>Short note.")
	assert.True(t, mail.sent[0].threaded)

	// CRM bookkeeping: note plus reschedule.
	require.Len(t, crmClient.notes, 1)
	assert.Contains(t, crmClient.notes[0], "Quick question")
	require.Len(t, crmClient.updates, 1)
	assert.Equal(t, "2025-03-20", crmClient.updates[0]["Next_Action_Date"])

	// The draft is consumed.
	assert.Equal(t, 0, drafts.Count())
}

func TestExecuteSendFailure(t *testing.T) {
	crmClient := &fakeCRM{pending: []models.Lead{testLead()}}
	mail := &fakeMailer{sendErr: fmt.Errorf("smtp down")}
	gen := &fakeGen{content: &models.EmailContent{Subject: "Hi", Body: "Hello"}}
	agent, drafts, notifier := newTestAgent(t, crmClient, mail, gen)

	_, err := agent.RunDailyCheck(context.Background())
	require.NoError(t, err)

	result, err := agent.ExecuteSend(context.Background(), notifier.drafts[0].ID)
	assert.Error(t, err)
	assert.Equal(t, models.SendResultFailed, result)

	// A failed send keeps the draft for retry and skips CRM writes.
	assert.Equal(t, 1, drafts.Count())
	assert.Empty(t, crmClient.notes)
	assert.Empty(t, crmClient.updates)
}

func TestSkipDraft(t *testing.T) {
	crmClient := &fakeCRM{pending: []models.Lead{testLead()}}
	gen := &fakeGen{content: &models.EmailContent{Subject: "Hi", Body: "Hello"}}
	agent, drafts, notifier := newTestAgent(t, crmClient, &fakeMailer{}, gen)

	_, err := agent.RunDailyCheck(context.Background())
	require.NoError(t, err)

	require.NoError(t, agent.SkipDraft(context.Background(), notifier.drafts[0].ID))

	require.Len(t, crmClient.updates, 1)
	assert.Equal(t, "Skipped - Retry Tomorrow", crmClient.updates[0]["Next_Action"])
	assert.Equal(t, "2025-03-16", crmClient.updates[0]["Next_Action_Date"])
	assert.Equal(t, 0, drafts.Count())
}

func TestRegenerateDraftPassesFeedback(t *testing.T) {
	crmClient := &fakeCRM{pending: []models.Lead{testLead()}}
	gen := &fakeGen{content: &models.EmailContent{Subject: "Hi", Body: "Hello"}}
	agent, _, notifier := newTestAgent(t, crmClient, &fakeMailer{}, gen)

	_, err := agent.RunDailyCheck(context.Background())
	require.NoError(t, err)

	gen.content = &models.EmailContent{Subject: "Revised", Body: "Better"}
	draft, err := agent.RegenerateDraft(context.Background(), notifier.drafts[0].ID, "make it shorter")
	require.NoError(t, err)

	assert.Equal(t, "Revised", draft.Content.Subject)
	assert.Contains(t, gen.feedback, "make it shorter")
}

func TestSyncContext(t *testing.T) {
	crmClient := &fakeCRM{pending: []models.Lead{testLead()}}
	agent, _, _ := newTestAgent(t, crmClient, &fakeMailer{}, &fakeGen{})

	updated, err := agent.SyncContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	require.Len(t, crmClient.updates, 1)
	assert.Equal(t, "Discussed pricing.", crmClient.updates[0]["Last_Conversation"])
	assert.Equal(t, models.StatusActive, crmClient.updates[0]["Reachout_Plan_Status"])
}

func TestExecuteSendUnknownDraft(t *testing.T) {
	agent, _, _ := newTestAgent(t, &fakeCRM{}, &fakeMailer{}, &fakeGen{})

	_, err := agent.ExecuteSend(context.Background(), "missing")
	assert.ErrorIs(t, err, draftstore.ErrNotFound)
}
