package leadfinder

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apexhq/salespilot/pkg/models"
)

// ScoredLead is one qualified contact in the digest.
type ScoredLead struct {
	Contact  models.Contact        `json:"contact"`
	Company  *models.CompanyRecord `json:"company,omitempty"`
	Score    int                   `json:"score"`
	Meetings int                   `json:"meetings"`
	Draft    *models.EmailContent  `json:"draft,omitempty"`
}

// Digest is the outcome of one lead-finder run.
type Digest struct {
	GeneratedAt     time.Time    `json:"generated_at"`
	ContactsScanned int          `json:"contacts_scanned"`
	Qualified       int          `json:"qualified"`
	Leads           []ScoredLead `json:"leads"`
}

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
<h2>Engaged leads digest - {{.GeneratedAt.Format "Jan 2, 2006"}}</h2>
<p>Scanned {{.ContactsScanned}} contacts, {{.Qualified}} qualified, showing top {{len .Leads}}.</p>
<table border="0" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
<tr style="background: #f0f0f0;">
  <th align="left">Score</th>
  <th align="left">Name</th>
  <th align="left">Title</th>
  <th align="left">Company</th>
  <th align="left">Signals</th>
</tr>
{{range .Leads}}
<tr style="border-bottom: 1px solid #ddd;">
  <td><b>{{.Score}}</b></td>
  <td>{{.Contact.Name}}<br><a href="mailto:{{.Contact.Email}}">{{.Contact.Email}}</a></td>
  <td>{{.Contact.JobTitle}}</td>
  <td>{{with .Company}}{{.Name}}{{if .Industry}} ({{.Industry}}){{end}}{{end}}</td>
  <td>{{.Contact.EmailOpens}} opens, {{.Contact.EmailClicks}} clicks, {{.Contact.PageViews}} views, {{.Meetings}} meetings{{if .Contact.HasRecentReply}}, replied recently{{end}}</td>
</tr>
{{with .Draft}}
<tr style="border-bottom: 1px solid #ddd;">
  <td></td>
  <td colspan="4" style="background: #fafafa;">
    <b>Draft: {{.Subject}}</b>
    <div style="white-space: pre-wrap; margin-top: 4px;">{{.Body}}</div>
  </td>
</tr>
{{end}}
{{end}}
</table>
</body>
</html>
`))

// RenderHTML renders the digest for email delivery.
func (d *Digest) RenderHTML() (string, error) {
	var b strings.Builder
	if err := digestTemplate.Execute(&b, d); err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}
	return b.String(), nil
}

// WriteFiles stores the digest under dir as an HTML page and a JSON record,
// returning the HTML path.
func (d *Digest) WriteFiles(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create digest directory: %w", err)
	}

	stamp := d.GeneratedAt.Format("2006-01-02")

	html, err := d.RenderHTML()
	if err != nil {
		return "", err
	}
	htmlPath := filepath.Join(dir, "digest-"+stamp+".html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("failed to write digest html: %w", err)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode digest: %w", err)
	}
	jsonPath := filepath.Join(dir, "digest-"+stamp+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write digest json: %w", err)
	}

	return htmlPath, nil
}
