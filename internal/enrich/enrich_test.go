package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestFormatContext(t *testing.T) {
	profile := &PersonProfile{
		Name:        "Ada Lovelace",
		Title:       "VP Engineering",
		Company:     "Analytical Engines",
		Industry:    "Computing",
		CompanySize: 450,
		Country:     "UK",
		Keywords:    []string{"automation", "analytics"},
	}

	ctx := profile.FormatContext()
	assert.Contains(t, ctx, "VP Engineering")
	assert.Contains(t, ctx, "Analytical Engines (Computing), ~450 employees")
	assert.Contains(t, ctx, "Location: UK")
	assert.Contains(t, ctx, "automation, analytics")
}

func TestFormatContextNil(t *testing.T) {
	var profile *PersonProfile
	assert.Empty(t, profile.FormatContext())
}

func TestNormalizeMeetingDate(t *testing.T) {
	// 2025-03-01T00:00:00Z in millisecond epoch.
	assert.Equal(t, "2025-03-01", normalizeMeetingDate(gjson.Parse("1740787200000")))
	assert.Equal(t, "2025-03-01", normalizeMeetingDate(gjson.Parse(`"2025-03-01T10:30:00Z"`)))
	assert.Equal(t, "", normalizeMeetingDate(gjson.Parse(`""`)))
}

func TestFormatMeetings(t *testing.T) {
	out := FormatMeetings([]MeetingSummary{
		{Title: "Intro call", Date: "2025-03-01", Overview: "Discussed rollout timeline."},
	})
	assert.Contains(t, out, "[2025-03-01] Intro call")
	assert.Contains(t, out, "rollout timeline")

	assert.Empty(t, FormatMeetings(nil))
}
