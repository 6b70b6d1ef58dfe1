package leadfinder

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

	"github.com/apexhq/salespilot/pkg/models"
)

// Contact properties requested from the marketing platform.
var contactProperties = []string{
	"email",
	"firstname",
	"lastname",
	"jobtitle",
	"company",
	"country",
	"lifecyclestage",
	"hs_linkedin_url",
	"employee_size",
	"hs_email_open_count",
	"hs_email_click_count",
	"hs_sales_email_last_replied",
	"hs_analytics_num_page_views",
	"num_conversion_events",
	"hs_email_last_send_date",
	"hs_last_sales_activity_timestamp",
	"notes_last_updated",
}

// MarketingClient reads contacts, companies and associations from a
// HubSpot-compatible marketing API.
type MarketingClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewMarketingClient creates a marketing API client.
func NewMarketingClient(baseURL, accessToken string, logger *slog.Logger) *MarketingClient {
	return &MarketingClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "marketing"),
	}
}

// SearchContacts pages through contacts in the given lifecycle stages, up to
// maxContacts.
func (c *MarketingClient) SearchContacts(ctx context.Context, lifecycleStages []string, maxContacts int) ([]models.Contact, error) {
	var contacts []models.Contact
	after := ""

	for len(contacts) < maxContacts {
		payload := ""
		if len(lifecycleStages) > 0 {
			payload, _ = sjson.Set(payload, "filterGroups.0.filters.0.propertyName", "lifecyclestage")
			payload, _ = sjson.Set(payload, "filterGroups.0.filters.0.operator", "IN")
			for i, stage := range lifecycleStages {
				payload, _ = sjson.Set(payload, fmt.Sprintf("filterGroups.0.filters.0.values.%d", i), stage)
			}
		}
		for i, prop := range contactProperties {
			payload, _ = sjson.Set(payload, fmt.Sprintf("properties.%d", i), prop)
		}
		payload, _ = sjson.Set(payload, "limit", 100)
		if after != "" {
			payload, _ = sjson.Set(payload, "after", after)
		}

		body, err := c.post(ctx, "/crm/v3/objects/contacts/search", []byte(payload))
		if err != nil {
			return nil, fmt.Errorf("contact search failed: %w", err)
		}

		for _, row := range gjson.GetBytes(body, "results").Array() {
			contacts = append(contacts, contactFromJSON(row))
		}

		after = gjson.GetBytes(body, "paging.next.after").String()
		if after == "" {
			break
		}
	}

	if len(contacts) > maxContacts {
		contacts = contacts[:maxContacts]
	}
	return contacts, nil
}

// AssociationCount returns how many objects of the given type are linked to
// a contact, e.g. "meetings" or "deals".
func (c *MarketingClient) AssociationCount(ctx context.Context, contactID, objectType string) (int, error) {
	body, err := c.get(ctx, fmt.Sprintf("/crm/v4/objects/contacts/%s/associations/%s?limit=100",
		contactID, objectType))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s associations: %w", objectType, err)
	}
	return len(gjson.GetBytes(body, "results").Array()), nil
}

// CompanyForContact returns the first company associated with a contact, or
// nil when there is none.
func (c *MarketingClient) CompanyForContact(ctx context.Context, contactID string) (*models.CompanyRecord, error) {
	body, err := c.get(ctx, "/crm/v4/objects/contacts/"+contactID+"/associations/companies?limit=1")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company association: %w", err)
	}

	companyID := gjson.GetBytes(body, "results.0.toObjectId").String()
	if companyID == "" {
		return nil, nil
	}

	detail, err := c.get(ctx, "/crm/v3/objects/companies/"+companyID+
		"?properties=name,industry,numberofemployees,description,website,country,city,annualrevenue")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company %s: %w", companyID, err)
	}

	props := gjson.GetBytes(detail, "properties")
	return &models.CompanyRecord{
		ID:            companyID,
		Name:          props.Get("name").String(),
		Industry:      props.Get("industry").String(),
		Employees:     int(props.Get("numberofemployees").Int()),
		Description:   props.Get("description").String(),
		Website:       props.Get("website").String(),
		Country:       props.Get("country").String(),
		City:          props.Get("city").String(),
		AnnualRevenue: props.Get("annualrevenue").String(),
	}, nil
}

// contactFromJSON maps a contact search row onto the internal model.
func contactFromJSON(row gjson.Result) models.Contact {
	props := row.Get("properties")
	return models.Contact{
		ID:              row.Get("id").String(),
		Email:           props.Get("email").String(),
		FirstName:       props.Get("firstname").String(),
		LastName:        props.Get("lastname").String(),
		JobTitle:        props.Get("jobtitle").String(),
		Company:         props.Get("company").String(),
		Country:         props.Get("country").String(),
		LifecycleStage:  props.Get("lifecyclestage").String(),
		LinkedInURL:     props.Get("hs_linkedin_url").String(),
		EmployeeSize:    int(props.Get("employee_size").Int()),
		EmailOpens:      int(props.Get("hs_email_open_count").Int()),
		EmailClicks:     int(props.Get("hs_email_click_count").Int()),
		PageViews:       int(props.Get("hs_analytics_num_page_views").Int()),
		FormSubmissions: int(props.Get("num_conversion_events").Int()),
		HasRecentReply:  props.Get("hs_sales_email_last_replied").String() != "",
		LastEmailSent:   parseTimestamp(props.Get("hs_email_last_send_date")),
		LastActivity:    parseTimestamp(props.Get("hs_last_sales_activity_timestamp")),
		LastContacted:   parseTimestamp(props.Get("notes_last_updated")),
	}
}

// parseTimestamp handles both RFC 3339 strings and millisecond epochs.
func parseTimestamp(v gjson.Result) time.Time {
	if !v.Exists() || v.String() == "" {
		return time.Time{}
	}
	if v.Type == gjson.Number {
		return time.UnixMilli(v.Int()).UTC()
	}
	if t, err := time.Parse(time.RFC3339, v.String()); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", v.String()[:min(10, len(v.String()))]); err == nil {
		return t
	}
	return time.Time{}
}

func (c *MarketingClient) get(ctx context.Context, path string) ([]byte, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *MarketingClient) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	return c.request(ctx, http.MethodPost, path, payload)
}

func (c *MarketingClient) request(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("marketing API error: %s (status %d)", string(body), resp.StatusCode)
	}
	return body, nil
}
