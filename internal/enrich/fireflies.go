package enrich

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const firefliesAPIURL = "https://api.fireflies.ai/graphql"

const transcriptQuery = `query Transcripts($title: String) {
  transcripts(title: $title, limit: 3) {
    id
    title
    date
    summary {
      overview
      action_items
    }
  }
}`

// MeetingSummary is a condensed call transcript for prompt context.
type MeetingSummary struct {
	Title       string
	Date        string
	Overview    string
	ActionItems string
}

// FirefliesClient pulls meeting summaries from the call-recording service.
type FirefliesClient struct {
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFirefliesClient creates a meeting-summary client.
func NewFirefliesClient(apiKey string, logger *slog.Logger) *FirefliesClient {
	return &FirefliesClient{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		logger: logger.With("component", "fireflies"),
	}
}

// MeetingsByTitle fetches recent meetings whose title mentions the query,
// typically the lead's company name.
func (c *FirefliesClient) MeetingsByTitle(ctx context.Context, title string) ([]MeetingSummary, error) {
	payload, _ := sjson.Set("", "query", transcriptQuery)
	payload, _ = sjson.Set(payload, "variables.title", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, firefliesAPIURL,
		bytes.NewReader([]byte(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transcript API error: %s (status %d)", string(body), resp.StatusCode)
	}
	if errMsg := gjson.GetBytes(body, "errors.0.message").String(); errMsg != "" {
		return nil, fmt.Errorf("transcript query rejected: %s", errMsg)
	}

	var meetings []MeetingSummary
	for _, row := range gjson.GetBytes(body, "data.transcripts").Array() {
		meetings = append(meetings, MeetingSummary{
			Title:       row.Get("title").String(),
			Date:        normalizeMeetingDate(row.Get("date")),
			Overview:    row.Get("summary.overview").String(),
			ActionItems: row.Get("summary.action_items").String(),
		})
	}
	return meetings, nil
}

// normalizeMeetingDate renders a transcript date as YYYY-MM-DD. The API
// returns either millisecond epochs or ISO strings depending on the account.
func normalizeMeetingDate(v gjson.Result) string {
	if v.Type == gjson.Number {
		return time.UnixMilli(v.Int()).UTC().Format("2006-01-02")
	}

	s := v.String()
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}

// FormatMeetings renders meeting summaries as a prompt block.
func FormatMeetings(meetings []MeetingSummary) string {
	if len(meetings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Past meetings with this prospect:\n")
	for _, m := range meetings {
		fmt.Fprintf(&b, "- [%s] %s\n", m.Date, m.Title)
		if m.Overview != "" {
			fmt.Fprintf(&b, "  %s\n", m.Overview)
		}
		if m.ActionItems != "" {
			fmt.Fprintf(&b, "  Action items: %s\n", m.ActionItems)
		}
	}
	return b.String()
}
