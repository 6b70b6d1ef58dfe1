package leadfinder

import (
	"fmt"
	"strings"
	"time"

	"github.com/apexhq/salespilot/pkg/models"
)

// Criteria narrows which contacts are worth surfacing.
type Criteria struct {
	MinEmployeeSize    int
	Industries         []string
	Countries          []string
	JobTitles          []string
	StaleThresholdDays int
}

// Score rates a contact's engagement. Each signal is capped so one noisy
// metric cannot dominate the total.
func Score(contact models.Contact, meetings int) int {
	score := 0
	score += capped(2*contact.EmailOpens, 20)
	score += capped(5*contact.EmailClicks, 25)
	if contact.HasRecentReply {
		score += 15
	}
	score += capped(contact.PageViews, 15)
	score += capped(10*contact.FormSubmissions, 30)
	score += capped(20*meetings, 40)
	return score
}

// IsStale reports whether a contact has gone without outreach longer than
// the threshold. A contact with no recorded outreach at all is stale.
func IsStale(contact models.Contact, now time.Time, thresholdDays int) bool {
	last := contact.LastEmailSent
	if contact.LastContacted.After(last) {
		last = contact.LastContacted
	}
	if contact.LastActivity.After(last) {
		last = contact.LastActivity
	}

	if last.IsZero() {
		return true
	}
	return now.Sub(last) > time.Duration(thresholdDays)*24*time.Hour
}

// PassesFilters checks a contact against the targeting criteria. The reason
// names the first failed check for the digest's skip log.
func (c Criteria) PassesFilters(contact models.Contact, company *models.CompanyRecord) (bool, string) {
	size := contact.EmployeeSize
	if size == 0 && company != nil {
		size = company.Employees
	}
	if c.MinEmployeeSize > 0 && size < c.MinEmployeeSize {
		return false, fmt.Sprintf("company too small (%d employees)", size)
	}

	if len(c.Industries) > 0 {
		industry := ""
		if company != nil {
			industry = company.Industry
		}
		if !containsFold(c.Industries, industry) {
			return false, fmt.Sprintf("industry %q not targeted", industry)
		}
	}

	if len(c.Countries) > 0 {
		country := contact.Country
		if country == "" && company != nil {
			country = company.Country
		}
		if !containsFold(c.Countries, country) {
			return false, fmt.Sprintf("country %q not targeted", country)
		}
	}

	if len(c.JobTitles) > 0 && !titleMatches(c.JobTitles, contact.JobTitle) {
		return false, fmt.Sprintf("job title %q not targeted", contact.JobTitle)
	}

	return true, ""
}

func capped(value, cap int) int {
	if value > cap {
		return cap
	}
	return value
}

func containsFold(haystack []string, needle string) bool {
	for _, item := range haystack {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(needle)) {
			return true
		}
	}
	return false
}

// titleMatches does substring matching so "VP Engineering" is caught by a
// "engineering" target.
func titleMatches(targets []string, title string) bool {
	title = strings.ToLower(title)
	for _, target := range targets {
		if target = strings.ToLower(strings.TrimSpace(target)); target != "" &&
			strings.Contains(title, target) {
			return true
		}
	}
	return false
}
