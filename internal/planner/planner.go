package planner

import (
	"fmt"
	"time"

	"github.com/apexhq/salespilot/pkg/models"
)

// How many days a reply stays "hot" enough to answer directly, and after how
// many days of silence a re-engagement nudge is due. Replies aged between the
// two fall through to the regular cadence.
const (
	activeReplyMaxDays  = 7
	reEngagementMinDays = 14
)

// step is one rung of the outreach cadence. Leads whose age falls in
// [minDay, maxDay] get the template; nextInterval is how many days until the
// following touch. A zero interval ends the cadence.
type step struct {
	minDay       int
	maxDay       int
	template     string
	nextInterval int
}

// schedule drives both planning and post-send rescheduling. Age gaps between
// rungs are deliberate cool-off windows where no touch is due.
var schedule = []step{
	{0, 1, models.TemplateDay0Intro, 2},
	{2, 4, models.TemplateDay2Followup, 5},
	{7, 10, models.TemplateDay7Followup, 7},
	{14, 20, models.TemplateDay14ValueAdd, 14},
	{28, 32, models.TemplateDay28CheckIn, 7},
	{35, 38, models.TemplateDay35Bump, 5},
	{39, 45, models.TemplateDay40Breakup, 0},
}

// NextStep decides what to do for a lead today. Replies take precedence over
// the status cadence: a recent reply gets answered, a long-silent one gets a
// re-engagement nudge.
func NextStep(lead models.Lead, emails []models.EmailRecord, now time.Time) (models.Plan, error) {
	if reply := latestReceived(emails); reply != nil {
		days := reply.DaysSince(now)

		if days <= activeReplyMaxDays {
			plan, err := models.NewEmailPlan(lead.ID, models.TemplateActiveResponse,
				fmt.Sprintf("replied %d days ago", days))
			if err != nil {
				return models.Plan{}, err
			}
			plan.Context = replyContext(reply)
			return plan, nil
		}

		if days > reEngagementMinDays {
			return models.NewEmailPlan(lead.ID, models.TemplateReEngagement,
				fmt.Sprintf("last reply was %d days ago", days))
		}
	}

	return statusStep(lead, now)
}

// statusStep applies the per-status cadence when no reply forces the plan.
func statusStep(lead models.Lead, now time.Time) (models.Plan, error) {
	switch lead.Status {
	case models.StatusActive:
		return models.NewReviewPlan(lead.ID, "active lead, review manually"), nil

	case models.StatusNurture:
		plan, err := models.NewEmailPlan(lead.ID, models.TemplateNurtureMonthly, "monthly nurture touch")
		if err != nil {
			return models.Plan{}, err
		}
		plan.NextDate = now.AddDate(0, 0, 30).Format("2006-01-02")
		return plan, nil

	case models.StatusNotActive, "":
		return dripStep(lead, now)

	default:
		return models.NewNonePlan(lead.ID, fmt.Sprintf("status %q is out of cadence", lead.Status)), nil
	}
}

// dripStep places a never-replied lead on the cadence by age.
func dripStep(lead models.Lead, now time.Time) (models.Plan, error) {
	day := lead.DaysSinceCreation(now)

	for _, s := range schedule {
		if day < s.minDay || day > s.maxDay {
			continue
		}

		plan, err := models.NewEmailPlan(lead.ID, s.template,
			fmt.Sprintf("no reply, day %d of cadence", day))
		if err != nil {
			return models.Plan{}, err
		}
		if s.nextInterval > 0 {
			plan.NextDate = now.AddDate(0, 0, s.nextInterval).Format("2006-01-02")
		} else {
			plan.MoveToNewsletter = true
		}
		return plan, nil
	}

	return models.NewNonePlan(lead.ID, fmt.Sprintf("day %d is between cadence touches", day)), nil
}

// latestReceived returns the most recent inbound email, or nil.
func latestReceived(emails []models.EmailRecord) *models.EmailRecord {
	var latest *models.EmailRecord
	for i := range emails {
		e := &emails[i]
		if e.Direction != models.DirectionReceived {
			continue
		}
		if latest == nil || e.Time > latest.Time {
			latest = e
		}
	}
	return latest
}

func replyContext(reply *models.EmailRecord) *models.ReplyContext {
	body := reply.CleanContent
	if body == "" {
		body = reply.Content
	}
	return &models.ReplyContext{
		LastReplyDate:    reply.Date(),
		LastReplyBody:    body,
		LastReplySubject: reply.Subject,
	}
}
