package models

import "time"

// Contact is a marketing CRM contact considered by the lead-finder workflow.
// Engagement counters come from the CRM's activity properties.
type Contact struct {
	ID             string
	Email          string
	FirstName      string
	LastName       string
	JobTitle       string
	Company        string
	Country        string
	LifecycleStage string
	LinkedInURL    string
	EmployeeSize   int

	EmailOpens      int
	EmailClicks     int
	PageViews       int
	FormSubmissions int
	HasRecentReply  bool

	// Last-activity candidates; zero values mean the CRM had no data.
	LastContacted time.Time
	LastEmailSent time.Time
	LastActivity  time.Time
}

// Name returns "First Last", or "Unknown" when both parts are empty.
func (c Contact) Name() string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name == "" {
		return "Unknown"
	}
	return name
}

// Company record associated with a marketing contact.
type CompanyRecord struct {
	ID            string
	Name          string
	Industry      string
	Employees     int
	Description   string
	Website       string
	Country       string
	City          string
	AnnualRevenue string
}
