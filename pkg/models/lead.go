package models

import (
	"strings"
	"time"
)

// Lead statuses as stored in the CRM's Reachout_Plan_Status field.
const (
	StatusNotActive         = "Not Active"
	StatusActive            = "Active"
	StatusNurture           = "Nurture"
	StatusClosed            = "Closed"
	StatusJunk              = "Junk_Lead"
	StatusDead              = "Dead"
	StatusAnalysisCompleted = "Analysis_Completed"
	StatusNewsletter        = "Newsletter"
)

// Lead is a CRM prospect record. Timestamps stay in the CRM's ISO string
// form; helpers parse the date prefix on demand.
type Lead struct {
	ID                 string `json:"id"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Company            string `json:"company"`
	Email              string `json:"email"`
	Status             string `json:"status"`
	Description        string `json:"description"`
	ProjectDescription string `json:"project_description"`
	ProjectName        string `json:"project_name"`
	LastConversation   string `json:"last_conversation"`
	LastActivityTime   string `json:"last_activity_time"`
	NextAction         string `json:"next_action"`
	NextActionDate     string `json:"next_action_date"`
	CreatedTime        string `json:"created_time"`
}

// FullName returns "First Last" with empty parts dropped.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// FullDescription joins the standard and custom description fields.
func (l Lead) FullDescription() string {
	s := strings.TrimSpace(l.Description + "\n" + l.ProjectDescription)
	if s == "" {
		return "No description available."
	}
	return s
}

// DaysSinceCreation returns whole days between the lead's creation date and
// now. Unparseable creation times count as day zero.
func (l Lead) DaysSinceCreation(now time.Time) int {
	d, ok := ParseCRMDate(l.CreatedTime)
	if !ok {
		return 0
	}
	days := int(now.Sub(d).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// ParseCRMDate parses the YYYY-MM-DD prefix of a CRM timestamp.
func ParseCRMDate(s string) (time.Time, bool) {
	if len(s) < 10 {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
