package models

import "fmt"

// PlanKind tags the planner's decision for a lead.
type PlanKind string

const (
	PlanNone   PlanKind = "none"
	PlanEmail  PlanKind = "email"
	PlanReview PlanKind = "review"
)

// Email templates the planner can select.
const (
	TemplateActiveResponse = "active_response"
	TemplateReEngagement   = "re_engagement"
	TemplateNurtureMonthly = "nurture_monthly_update"
	TemplateDay0Intro      = "day_0_intro"
	TemplateDay2Followup   = "day_2_followup"
	TemplateDay7Followup   = "day_7_followup"
	TemplateDay14ValueAdd  = "day_14_value_add"
	TemplateDay28CheckIn   = "day_28_check_in"
	TemplateDay35Bump      = "day_35_bump"
	TemplateDay40Breakup   = "day_40_breakup"
)

// ReplyContext carries the lead's latest reply for the generator to answer
// directly.
type ReplyContext struct {
	LastReplyDate    string `json:"last_reply_date"`
	LastReplyBody    string `json:"last_reply_body"`
	LastReplySubject string `json:"last_reply_subject"`
}

// Plan is the planner's decision for a single lead. Build email plans through
// NewEmailPlan so a template is always present.
type Plan struct {
	Kind             PlanKind      `json:"type"`
	Template         string        `json:"template,omitempty"`
	Reason           string        `json:"reason"`
	NextDate         string        `json:"next_date,omitempty"` // YYYY-MM-DD
	Context          *ReplyContext `json:"context,omitempty"`
	MoveToNewsletter bool          `json:"move_to_newsletter,omitempty"`
	LeadID           string        `json:"lead_id"`
}

// NewNonePlan returns a no-action plan.
func NewNonePlan(leadID, reason string) Plan {
	return Plan{Kind: PlanNone, Reason: reason, LeadID: leadID}
}

// NewReviewPlan returns a manual-review plan.
func NewReviewPlan(leadID, reason string) Plan {
	return Plan{Kind: PlanReview, Reason: reason, LeadID: leadID}
}

// NewEmailPlan returns an email plan, rejecting an empty template.
func NewEmailPlan(leadID, template, reason string) (Plan, error) {
	if template == "" {
		return Plan{}, fmt.Errorf("email plan for lead %s has no template", leadID)
	}
	return Plan{Kind: PlanEmail, Template: template, Reason: reason, LeadID: leadID}, nil
}
