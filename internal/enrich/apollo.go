package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const apolloAPIBase = "https://api.apollo.io/api/v1"

// PersonProfile is the subset of an enrichment match used for drafting.
type PersonProfile struct {
	Name        string
	Title       string
	Company     string
	Industry    string
	CompanySize int
	City        string
	Country     string
	LinkedInURL string
	Keywords    []string
}

// ApolloClient enriches a lead's email address with firmographic data.
type ApolloClient struct {
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewApolloClient creates an enrichment client. A nil client is safe to skip
// on, so callers can treat enrichment as optional.
func NewApolloClient(apiKey string, logger *slog.Logger) *ApolloClient {
	return &ApolloClient{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With("component", "apollo"),
	}
}

// MatchByEmail looks up the person behind an email address. A miss returns
// nil without error.
func (c *ApolloClient) MatchByEmail(ctx context.Context, email string) (*PersonProfile, error) {
	query := url.Values{"email": {email}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		apolloAPIBase+"/people/match?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrichment request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read enrichment response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("enrichment API error: %s (status %d)", string(body), resp.StatusCode)
	}

	person := gjson.GetBytes(body, "person")
	if !person.Exists() || person.Get("id").String() == "" {
		return nil, nil
	}

	profile := &PersonProfile{
		Name:        person.Get("name").String(),
		Title:       person.Get("title").String(),
		Company:     person.Get("organization.name").String(),
		Industry:    person.Get("organization.industry").String(),
		CompanySize: int(person.Get("organization.estimated_num_employees").Int()),
		City:        person.Get("city").String(),
		Country:     person.Get("country").String(),
		LinkedInURL: person.Get("linkedin_url").String(),
	}
	for _, kw := range person.Get("organization.keywords").Array() {
		profile.Keywords = append(profile.Keywords, kw.String())
		if len(profile.Keywords) >= 10 {
			break
		}
	}

	c.logger.Debug("enrichment match", "email", email, "company", profile.Company)
	return profile, nil
}

// FormatContext renders a profile as a prompt block.
func (p *PersonProfile) FormatContext() string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("Prospect profile:\n")
	if p.Name != "" {
		fmt.Fprintf(&b, "- Name: %s\n", p.Name)
	}
	if p.Title != "" {
		fmt.Fprintf(&b, "- Title: %s\n", p.Title)
	}
	if p.Company != "" {
		fmt.Fprintf(&b, "- Company: %s", p.Company)
		if p.Industry != "" {
			fmt.Fprintf(&b, " (%s)", p.Industry)
		}
		if p.CompanySize > 0 {
			fmt.Fprintf(&b, ", ~%d employees", p.CompanySize)
		}
		b.WriteString("\n")
	}
	if p.City != "" || p.Country != "" {
		parts := []string{}
		for _, part := range []string{p.City, p.Country} {
			if part != "" {
				parts = append(parts, part)
			}
		}
		fmt.Fprintf(&b, "- Location: %s\n", strings.Join(parts, ", "))
	}
	if len(p.Keywords) > 0 {
		fmt.Fprintf(&b, "- Focus areas: %s\n", strings.Join(p.Keywords, ", "))
	}
	return b.String()
}
