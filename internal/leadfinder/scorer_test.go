package leadfinder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/apexhq/salespilot/pkg/models"
)

func TestScore(t *testing.T) {
	contact := models.Contact{
		EmailOpens:      10,
		EmailClicks:     3,
		PageViews:       20,
		FormSubmissions: 1,
		HasRecentReply:  false,
	}

	// 20 (opens, capped) + 15 (clicks) + 15 (views, capped) + 10 (conversion)
	assert.Equal(t, 60, Score(contact, 0))
}

func TestScoreCaps(t *testing.T) {
	contact := models.Contact{
		EmailOpens:      1000,
		EmailClicks:     1000,
		PageViews:       1000,
		FormSubmissions: 1000,
		HasRecentReply:  true,
	}

	// Every signal at its cap: 20+25+15+15+30+40.
	assert.Equal(t, 145, Score(contact, 50))
}

func TestScoreZero(t *testing.T) {
	assert.Equal(t, 0, Score(models.Contact{}, 0))
}

func TestIsStale(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	fresh := models.Contact{LastEmailSent: now.AddDate(0, 0, -3)}
	assert.False(t, IsStale(fresh, now, 14))

	stale := models.Contact{LastEmailSent: now.AddDate(0, 0, -20)}
	assert.True(t, IsStale(stale, now, 14))

	// Recent activity of any kind keeps a contact fresh.
	active := models.Contact{
		LastEmailSent: now.AddDate(0, 0, -20),
		LastActivity:  now.AddDate(0, 0, -2),
	}
	assert.False(t, IsStale(active, now, 14))

	never := models.Contact{}
	assert.True(t, IsStale(never, now, 14))
}

func TestPassesFilters(t *testing.T) {
	criteria := Criteria{
		MinEmployeeSize: 200,
		Industries:      []string{"Manufacturing", "Logistics"},
		Countries:       []string{"Germany", "Netherlands"},
		JobTitles:       []string{"engineering", "operations"},
	}

	contact := models.Contact{
		JobTitle:     "VP Engineering",
		Country:      "Germany",
		EmployeeSize: 450,
	}
	company := &models.CompanyRecord{Industry: "Manufacturing", Employees: 450}

	ok, reason := criteria.PassesFilters(contact, company)
	assert.True(t, ok, reason)
}

func TestPassesFiltersRejections(t *testing.T) {
	criteria := Criteria{
		MinEmployeeSize: 200,
		Industries:      []string{"Manufacturing"},
		Countries:       []string{"Germany"},
		JobTitles:       []string{"engineering"},
	}

	tests := []struct {
		name    string
		contact models.Contact
		company *models.CompanyRecord
		reason  string
	}{
		{
			name:    "too small",
			contact: models.Contact{EmployeeSize: 50, JobTitle: "VP Engineering", Country: "Germany"},
			company: &models.CompanyRecord{Industry: "Manufacturing"},
			reason:  "too small",
		},
		{
			name:    "wrong industry",
			contact: models.Contact{EmployeeSize: 450, JobTitle: "VP Engineering", Country: "Germany"},
			company: &models.CompanyRecord{Industry: "Retail"},
			reason:  "industry",
		},
		{
			name:    "wrong country",
			contact: models.Contact{EmployeeSize: 450, JobTitle: "VP Engineering", Country: "France"},
			company: &models.CompanyRecord{Industry: "Manufacturing"},
			reason:  "country",
		},
		{
			name:    "wrong title",
			contact: models.Contact{EmployeeSize: 450, JobTitle: "Head of Marketing", Country: "Germany"},
			company: &models.CompanyRecord{Industry: "Manufacturing"},
			reason:  "job title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := criteria.PassesFilters(tt.contact, tt.company)
			assert.False(t, ok)
			assert.Contains(t, reason, tt.reason)
		})
	}
}

func TestPassesFiltersCompanySizeFallback(t *testing.T) {
	criteria := Criteria{MinEmployeeSize: 200}

	contact := models.Contact{JobTitle: "COO"}
	ok, _ := criteria.PassesFilters(contact, &models.CompanyRecord{Employees: 300})
	assert.True(t, ok)

	ok, _ = criteria.PassesFilters(contact, nil)
	assert.False(t, ok)
}
