package planner

import (
	"time"

	"github.com/apexhq/salespilot/pkg/models"
)

// Cadence adapts the package functions to a value that can be injected and
// faked in tests.
type Cadence struct{}

// NextStep decides the next outreach step for a lead.
func (Cadence) NextStep(lead models.Lead, emails []models.EmailRecord, now time.Time) (models.Plan, error) {
	return NextStep(lead, emails, now)
}

// RescheduleAfterSend returns the CRM field updates due after a send.
func (Cadence) RescheduleAfterSend(lead models.Lead, emails []models.EmailRecord, now time.Time) map[string]string {
	return RescheduleAfterSend(lead, emails, now).Fields()
}
