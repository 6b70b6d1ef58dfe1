package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexhq/salespilot/pkg/models"
)

var now = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

func leadAged(days int, status string) models.Lead {
	return models.Lead{
		ID:          "lead-1",
		Status:      status,
		CreatedTime: now.AddDate(0, 0, -days).Format("2006-01-02T15:04:05-07:00"),
	}
}

func receivedDaysAgo(days int, body string) models.EmailRecord {
	return models.EmailRecord{
		MessageID:    "msg-1",
		Subject:      "Re: pricing",
		Time:         now.AddDate(0, 0, -days).Format("2006-01-02T15:04:05-07:00"),
		Content:      body,
		CleanContent: body,
		Direction:    models.DirectionReceived,
	}
}

func sentDaysAgo(days int) models.EmailRecord {
	return models.EmailRecord{
		MessageID: "msg-out",
		Subject:   "Following up",
		Time:      now.AddDate(0, 0, -days).Format("2006-01-02T15:04:05-07:00"),
		Direction: models.DirectionSent,
	}
}

func TestNextStepRecentReply(t *testing.T) {
	lead := leadAged(30, models.StatusNotActive)
	emails := []models.EmailRecord{
		sentDaysAgo(2),
		receivedDaysAgo(3, "Can you send pricing?"),
	}

	plan, err := NextStep(lead, emails, now)
	require.NoError(t, err)

	assert.Equal(t, models.PlanEmail, plan.Kind)
	assert.Equal(t, models.TemplateActiveResponse, plan.Template)
	require.NotNil(t, plan.Context)
	assert.Equal(t, "Can you send pricing?", plan.Context.LastReplyBody)
	assert.Equal(t, "Re: pricing", plan.Context.LastReplySubject)
}

func TestNextStepStaleReply(t *testing.T) {
	lead := leadAged(60, models.StatusNotActive)
	emails := []models.EmailRecord{receivedDaysAgo(20, "thanks")}

	plan, err := NextStep(lead, emails, now)
	require.NoError(t, err)

	assert.Equal(t, models.TemplateReEngagement, plan.Template)
	assert.Nil(t, plan.Context)
}

func TestNextStepMidAgedReplyFallsToCadence(t *testing.T) {
	// A reply between the hot and stale windows defers to the status cadence.
	lead := leadAged(60, models.StatusActive)
	emails := []models.EmailRecord{receivedDaysAgo(10, "let me think")}

	plan, err := NextStep(lead, emails, now)
	require.NoError(t, err)
	assert.Equal(t, models.PlanReview, plan.Kind)
}

func TestNextStepOnlySentEmailsIgnored(t *testing.T) {
	lead := leadAged(3, models.StatusNotActive)
	emails := []models.EmailRecord{sentDaysAgo(1), sentDaysAgo(3)}

	plan, err := NextStep(lead, emails, now)
	require.NoError(t, err)
	assert.Equal(t, models.TemplateDay2Followup, plan.Template)
}

func TestNextStepDripCadence(t *testing.T) {
	tests := []struct {
		day      int
		template string
		nextDate string
	}{
		{0, models.TemplateDay0Intro, "2025-03-17"},
		{1, models.TemplateDay0Intro, "2025-03-17"},
		{3, models.TemplateDay2Followup, "2025-03-20"},
		{8, models.TemplateDay7Followup, "2025-03-22"},
		{15, models.TemplateDay14ValueAdd, "2025-03-29"},
		{30, models.TemplateDay28CheckIn, "2025-03-22"},
		{36, models.TemplateDay35Bump, "2025-03-20"},
	}

	for _, tt := range tests {
		plan, err := NextStep(leadAged(tt.day, models.StatusNotActive), nil, now)
		require.NoError(t, err)
		assert.Equal(t, tt.template, plan.Template, "day %d", tt.day)
		assert.Equal(t, tt.nextDate, plan.NextDate, "day %d", tt.day)
		assert.False(t, plan.MoveToNewsletter, "day %d", tt.day)
	}
}

func TestNextStepBreakup(t *testing.T) {
	plan, err := NextStep(leadAged(40, models.StatusNotActive), nil, now)
	require.NoError(t, err)

	assert.Equal(t, models.TemplateDay40Breakup, plan.Template)
	assert.Empty(t, plan.NextDate)
	assert.True(t, plan.MoveToNewsletter)
}

func TestNextStepCadenceGaps(t *testing.T) {
	for _, day := range []int{5, 6, 12, 25, 33, 50} {
		plan, err := NextStep(leadAged(day, models.StatusNotActive), nil, now)
		require.NoError(t, err)
		assert.Equal(t, models.PlanNone, plan.Kind, "day %d", day)
	}
}

func TestNextStepNurture(t *testing.T) {
	plan, err := NextStep(leadAged(90, models.StatusNurture), nil, now)
	require.NoError(t, err)

	assert.Equal(t, models.TemplateNurtureMonthly, plan.Template)
	assert.Equal(t, "2025-04-14", plan.NextDate)
}

func TestNextStepTerminalStatuses(t *testing.T) {
	for _, status := range []string{
		models.StatusClosed,
		models.StatusJunk,
		models.StatusDead,
		models.StatusNewsletter,
	} {
		plan, err := NextStep(leadAged(10, status), nil, now)
		require.NoError(t, err)
		assert.Equal(t, models.PlanNone, plan.Kind, "status %s", status)
	}
}

func TestRescheduleAfterSendNeverReplied(t *testing.T) {
	tests := []struct {
		day        int
		wantDate   string
		wantAction string
	}{
		{0, "2025-03-17", "Drip follow-up (day 2)"},
		{3, "2025-03-20", "Drip follow-up (day 8)"},
		{8, "2025-03-22", "Drip follow-up (day 15)"},
		{20, "2025-03-29", "Drip follow-up (day 34)"},
		{30, "2025-03-22", "Drip follow-up (day 37)"},
		{36, "2025-03-20", "Drip follow-up (day 41)"},
	}

	for _, tt := range tests {
		update := RescheduleAfterSend(leadAged(tt.day, models.StatusNotActive), nil, now)
		assert.Equal(t, tt.wantDate, update.NextActionDate, "day %d", tt.day)
		assert.Equal(t, tt.wantAction, update.NextAction, "day %d", tt.day)
		assert.Empty(t, update.Status, "day %d", tt.day)
	}
}

func TestRescheduleAfterSendCadenceEnd(t *testing.T) {
	update := RescheduleAfterSend(leadAged(42, models.StatusNotActive), nil, now)

	assert.Empty(t, update.NextActionDate)
	assert.Equal(t, models.StatusNewsletter, update.Status)
}

// Day 38 is the last bump rung; day 39 enters the breakup range, where the
// cadence ends and the lead moves to the newsletter list.
func TestRescheduleAfterSendBreakupBoundary(t *testing.T) {
	update := RescheduleAfterSend(leadAged(38, models.StatusNotActive), nil, now)
	assert.Equal(t, "2025-03-20", update.NextActionDate)
	assert.Equal(t, "Drip follow-up (day 43)", update.NextAction)
	assert.Empty(t, update.Status)

	update = RescheduleAfterSend(leadAged(39, models.StatusNotActive), nil, now)
	assert.Empty(t, update.NextActionDate)
	assert.Equal(t, models.StatusNewsletter, update.Status)
}

func TestRescheduleAfterSendStaleReply(t *testing.T) {
	emails := []models.EmailRecord{receivedDaysAgo(20, "ok")}
	update := RescheduleAfterSend(leadAged(60, models.StatusNotActive), emails, now)

	assert.Equal(t, "2025-03-20", update.NextActionDate)
	assert.Equal(t, "Re-engagement follow-up", update.NextAction)
}

func TestRescheduleAfterSendRecentReply(t *testing.T) {
	emails := []models.EmailRecord{receivedDaysAgo(3, "ok")}
	update := RescheduleAfterSend(leadAged(60, models.StatusNotActive), emails, now)

	assert.Empty(t, update.NextActionDate)
	assert.Empty(t, update.Status)
	assert.Contains(t, update.NextAction, "manually")
}

func TestUpdateFields(t *testing.T) {
	fields := Update{
		NextAction:     "Drip follow-up (day 8)",
		NextActionDate: "2025-03-20",
	}.Fields()

	assert.Equal(t, map[string]string{
		"Next_Action":      "Drip follow-up (day 8)",
		"Next_Action_Date": "2025-03-20",
	}, fields)
}
