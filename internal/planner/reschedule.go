package planner

import (
	"fmt"
	"time"

	"github.com/apexhq/salespilot/pkg/models"
)

// Update holds the CRM field changes due after an email goes out. Empty
// values are omitted from the write-back.
type Update struct {
	NextAction     string
	NextActionDate string // YYYY-MM-DD
	Status         string
}

// Fields maps the update onto CRM record fields.
func (u Update) Fields() map[string]string {
	fields := map[string]string{}
	if u.NextAction != "" {
		fields["Next_Action"] = u.NextAction
	}
	if u.NextActionDate != "" {
		fields["Next_Action_Date"] = u.NextActionDate
	}
	if u.Status != "" {
		fields["Reachout_Plan_Status"] = u.Status
	}
	return fields
}

// RescheduleAfterSend computes the follow-up bookkeeping for a lead right
// after an email was sent to them.
func RescheduleAfterSend(lead models.Lead, emails []models.EmailRecord, now time.Time) Update {
	if reply := latestReceived(emails); reply != nil {
		if reply.DaysSince(now) > reEngagementMinDays {
			return Update{
				NextAction:     "Re-engagement follow-up",
				NextActionDate: now.AddDate(0, 0, 5).Format("2006-01-02"),
			}
		}
		// A live conversation is the rep's to drive, not the cadence's.
		return Update{NextAction: "Lead replied recently, follow up manually"}
	}

	day := lead.DaysSinceCreation(now)
	interval := nextIntervalAfter(day)
	if interval == 0 {
		return Update{
			NextAction: "Cadence complete, moved to newsletter",
			Status:     models.StatusNewsletter,
		}
	}

	return Update{
		NextAction:     fmt.Sprintf("Drip follow-up (day %d)", day+interval),
		NextActionDate: now.AddDate(0, 0, interval).Format("2006-01-02"),
	}
}

// nextIntervalAfter returns the wait before the next touch for a lead at the
// given age. Ages past the last rung report zero, ending the cadence.
func nextIntervalAfter(day int) int {
	interval := schedule[0].nextInterval
	for _, s := range schedule {
		if day >= s.minDay {
			interval = s.nextInterval
		}
	}
	return interval
}
