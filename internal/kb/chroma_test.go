package kb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apexhq/salespilot/pkg/models"
)

func TestLeadQueries(t *testing.T) {
	lead := models.Lead{
		Company:     "Analytical Engines",
		Description: "Evaluating workflow automation vendors",
	}

	queries := leadQueries(lead, "VP Engineering in manufacturing")
	assert.Len(t, queries, 3)
	assert.Contains(t, queries[0], "Analytical Engines")
	assert.Contains(t, queries[1], "VP Engineering")
}

func TestLeadQueriesFallback(t *testing.T) {
	queries := leadQueries(models.Lead{}, "")
	assert.Equal(t, []string{"product overview and key benefits"}, queries)
}

func TestFormatSnippets(t *testing.T) {
	out := formatSnippets([]Snippet{
		{Text: "Cut onboarding time by 40%.", Category: "case_study", Source: "acme.md"},
		{Text: "Integrates with common CRMs.", Category: "", Source: ""},
	})

	assert.Contains(t, out, "[case_study/acme.md] Cut onboarding time by 40%.")
	assert.Contains(t, out, "[kb] Integrates with common CRMs.")
	assert.Empty(t, formatSnippets(nil))
}
