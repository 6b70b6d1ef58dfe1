package crm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"

	"github.com/apexhq/salespilot/internal/parser"
	"github.com/apexhq/salespilot/pkg/models"
)

// Statuses excluded when listing leads still worth working.
var inactiveStatuses = map[string]bool{
	models.StatusClosed:            true,
	models.StatusJunk:              true,
	models.StatusDead:              true,
	models.StatusAnalysisCompleted: true,
}

// Client is a Zoho-style CRM API client. Token refresh is handled by an
// oauth2 token source gated on the cached expiry, so an expired bearer token
// is transparently renewed before the next authenticated call.
type Client struct {
	apiDomain  string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	cleaner    *parser.EmailCleaner
	logger     *slog.Logger
}

// Config for the CRM client
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	APIDomain    string // e.g., https://www.zohoapis.com
}

// Note is a CRM note attached to a lead.
type Note struct {
	CreatedTime string
	Content     string
}

// NewClient creates a new CRM API client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  accountsURL(cfg.APIDomain) + "/oauth/v2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &Client{
		apiDomain: strings.TrimRight(cfg.APIDomain, "/"),
		tokens: oc.TokenSource(context.Background(), &oauth2.Token{
			RefreshToken: cfg.RefreshToken,
		}),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cleaner: parser.NewEmailCleaner(),
		logger:  logger.With("component", "crm"),
	}
}

// accountsURL determines the OAuth accounts host for a regional API domain.
func accountsURL(apiDomain string) string {
	switch {
	case strings.Contains(apiDomain, ".com.cn"):
		return "https://accounts.zoho.com.cn"
	case strings.Contains(apiDomain, ".com.au"):
		return "https://accounts.zoho.com.au"
	case strings.Contains(apiDomain, ".eu"):
		return "https://accounts.zoho.eu"
	case strings.Contains(apiDomain, ".in"):
		return "https://accounts.zoho.in"
	default:
		return "https://accounts.zoho.com"
	}
}

// do performs an authenticated request and returns the response body.
// A 204 returns nil body and no error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := c.apiDomain + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+tok.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("CRM API error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	return respBody, nil
}

// Leads fetches the most recent page of leads.
func (c *Client) Leads(ctx context.Context) ([]models.Lead, error) {
	q := url.Values{"per_page": {"200"}}
	body, err := c.do(ctx, http.MethodGet, "/crm/v2/Leads", q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}

	var leads []models.Lead
	for _, row := range gjson.GetBytes(body, "data").Array() {
		leads = append(leads, leadFromJSON(row))
	}
	return leads, nil
}

// SearchLeads searches leads by CRM criteria expression,
// e.g. (Email:equals:test@example.com)
func (c *Client) SearchLeads(ctx context.Context, criteria string) ([]models.Lead, error) {
	q := url.Values{"criteria": {criteria}}
	body, err := c.do(ctx, http.MethodGet, "/crm/v2/Leads/search", q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search leads: %w", err)
	}

	var leads []models.Lead
	for _, row := range gjson.GetBytes(body, "data").Array() {
		leads = append(leads, leadFromJSON(row))
	}
	return leads, nil
}

// LeadDetails fetches the full record for a single lead.
func (c *Client) LeadDetails(ctx context.Context, leadID string) (models.Lead, error) {
	body, err := c.do(ctx, http.MethodGet, "/crm/v2/Leads/"+leadID, nil, nil)
	if err != nil {
		return models.Lead{}, fmt.Errorf("failed to fetch lead %s: %w", leadID, err)
	}

	rows := gjson.GetBytes(body, "data").Array()
	if len(rows) == 0 {
		return models.Lead{}, fmt.Errorf("lead %s not found", leadID)
	}
	return leadFromJSON(rows[0]), nil
}

// PendingLeads returns leads whose Next_Action_Date falls on the given day.
func (c *Client) PendingLeads(ctx context.Context, day time.Time) ([]models.Lead, error) {
	leads, err := c.Leads(ctx)
	if err != nil {
		return nil, err
	}

	today := day.Format("2006-01-02")
	var pending []models.Lead
	for _, lead := range leads {
		if len(lead.NextActionDate) >= 10 && lead.NextActionDate[:10] == today {
			pending = append(pending, lead)
		}
	}
	return pending, nil
}

// ActiveLeads returns up to limit leads not in a terminal status.
func (c *Client) ActiveLeads(ctx context.Context, limit int) ([]models.Lead, error) {
	leads, err := c.Leads(ctx)
	if err != nil {
		return nil, err
	}

	var active []models.Lead
	for _, lead := range leads {
		if inactiveStatuses[lead.Status] {
			continue
		}
		active = append(active, lead)
		if len(active) >= limit {
			break
		}
	}
	return active, nil
}

// Notes fetches recent notes for a lead, newest first.
func (c *Client) Notes(ctx context.Context, leadID string) ([]Note, error) {
	q := url.Values{
		"sort_by":    {"Created_Time"},
		"sort_order": {"desc"},
		"per_page":   {"10"},
	}
	body, err := c.do(ctx, http.MethodGet, "/crm/v2/Leads/"+leadID+"/Notes", q, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes: %w", err)
	}

	var notes []Note
	for _, row := range gjson.GetBytes(body, "data").Array() {
		notes = append(notes, Note{
			CreatedTime: row.Get("Created_Time").String(),
			Content:     row.Get("Note_Content").String(),
		})
	}
	return notes, nil
}

// AddNote attaches a note to a lead.
func (c *Client) AddNote(ctx context.Context, leadID, content string) error {
	payload, _ := sjson.Set("", "data.0.Note_Content", content)
	payload, _ = sjson.Set(payload, "data.0.Parent_Id", leadID)
	payload, _ = sjson.Set(payload, "data.0.se_module", "Leads")

	body, err := c.do(ctx, http.MethodPost, "/crm/v2/Leads/"+leadID+"/Notes", nil, []byte(payload))
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}

	if code := gjson.GetBytes(body, "data.0.code").String(); code != "SUCCESS" {
		return fmt.Errorf("add note rejected: %s", code)
	}
	return nil
}

// Emails fetches up to limit email rows for a lead, paginating with the
// CRM's index cursor and normalizing each row at the boundary.
func (c *Client) Emails(ctx context.Context, leadID string, limit int) ([]models.EmailRecord, error) {
	if limit < 1 {
		limit = 1
	}

	var collected []models.EmailRecord
	nextIndex := ""

	for len(collected) < limit {
		q := url.Values{
			"sort_by":    {"Message_Time"},
			"sort_order": {"desc"},
			"per_page":   {"200"},
		}
		if nextIndex != "" {
			q.Set("index", nextIndex)
		}

		body, err := c.do(ctx, http.MethodGet, "/crm/v3/Leads/"+leadID+"/Emails", q, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch emails: %w", err)
		}
		if body == nil {
			break
		}

		rows := emailRows(body)
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			collected = append(collected, emailFromJSON(row))
		}

		info := gjson.GetBytes(body, "info")
		nextIndex = info.Get("next_index").String()
		if !info.Get("more_records").Bool() || nextIndex == "" {
			break
		}
	}

	if len(collected) > limit {
		collected = collected[:limit]
	}
	return collected, nil
}

// EmailContent fetches the full body of one email. For shared mailboxes the
// CRM may require the record owner's user id, so a provided ownerID is
// retried after the plain request fails.
func (c *Client) EmailContent(ctx context.Context, leadID, messageID, ownerID string) (string, error) {
	userIDs := []string{""}
	if ownerID != "" {
		userIDs = append(userIDs, ownerID)
	}

	var lastErr error
	for _, userID := range userIDs {
		var q url.Values
		if userID != "" {
			q = url.Values{"user_id": {userID}}
		}

		body, err := c.do(ctx, http.MethodGet, "/crm/v3/Leads/"+leadID+"/Emails/"+messageID, q, nil)
		if err != nil {
			lastErr = err
			continue
		}
		rows := emailRows(body)
		if len(rows) == 0 {
			return "", nil
		}
		return rows[0].Get("content").String(), nil
	}

	return "", fmt.Errorf("failed to fetch email content for %s: %w", messageID, lastErr)
}

// EnrichedEmails returns up to limit recent emails sorted newest first, with
// full bodies fetched when the list row only carried a snippet and the
// cleaned reply text populated.
func (c *Client) EnrichedEmails(ctx context.Context, leadID string, limit int) ([]models.EmailRecord, error) {
	emails, err := c.Emails(ctx, leadID, 20)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].Time > emails[j].Time
	})
	if len(emails) > limit {
		emails = emails[:limit]
	}

	for i := range emails {
		e := &emails[i]
		// Snippet-only rows need a secondary fetch for the full body
		if len(e.Content) < 50 && e.MessageID != "" {
			full, err := c.EmailContent(ctx, leadID, e.MessageID, "")
			if err != nil {
				c.logger.Warn("failed to fetch full email content",
					"lead_id", leadID, "message_id", e.MessageID, "error", err)
			} else if full != "" {
				e.Content = full
			}
		}
		e.CleanContent = c.cleaner.CleanReply(e.Content)
	}

	return emails, nil
}

// UpdateLead patches the given fields on a lead record.
func (c *Client) UpdateLead(ctx context.Context, leadID string, fields map[string]string) error {
	payload := ""
	for k, v := range fields {
		payload, _ = sjson.Set(payload, "data.0."+k, v)
	}

	body, err := c.do(ctx, http.MethodPut, "/crm/v2/Leads/"+leadID, nil, []byte(payload))
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}

	if code := gjson.GetBytes(body, "data.0.code").String(); code != "SUCCESS" {
		return fmt.Errorf("lead update rejected: %s", gjson.GetBytes(body, "data.0").Raw)
	}
	return nil
}
