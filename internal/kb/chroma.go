package kb

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

const (
	snippetsPerQuery = 3
	maxSnippets      = 8
	dedupePrefixLen  = 100
)

// Snippet is one retrieved knowledge-base passage.
type Snippet struct {
	Text     string
	Category string
	Source   string
}

// Client queries a Chroma vector store over its REST API. The collection is
// resolved by name once and cached.
type Client struct {
	baseURL      string
	collection   string
	collectionID string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a knowledge-base client for the given Chroma server and
// collection name.
func NewClient(baseURL, collection string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With("component", "kb"),
	}
}

// Query retrieves the closest passages for a free-text query.
func (c *Client) Query(ctx context.Context, query string, n int) ([]Snippet, error) {
	id, err := c.collectionIDFor(ctx)
	if err != nil {
		return nil, err
	}

	payload, _ := sjson.Set("", "query_texts.0", query)
	payload, _ = sjson.Set(payload, "n_results", n)
	payload, _ = sjson.SetRaw(payload, "include", `["documents","metadatas"]`)

	body, err := c.post(ctx, "/api/v1/collections/"+id+"/query", []byte(payload))
	if err != nil {
		return nil, fmt.Errorf("knowledge base query failed: %w", err)
	}

	docs := gjson.GetBytes(body, "documents.0").Array()
	metas := gjson.GetBytes(body, "metadatas.0").Array()

	var snippets []Snippet
	for i, doc := range docs {
		snippet := Snippet{Text: doc.String()}
		if i < len(metas) {
			snippet.Category = metas[i].Get("category").String()
			snippet.Source = metas[i].Get("source").String()
		}
		snippets = append(snippets, snippet)
	}
	return snippets, nil
}

// ContextForLead retrieves passages relevant to a lead and renders them as a
// prompt block. Retrieval failures degrade to an empty context.
func (c *Client) ContextForLead(ctx context.Context, lead models.Lead, profileHint string) string {
	queries := leadQueries(lead, profileHint)

	var collected []Snippet
	seen := map[string]bool{}

	for _, query := range queries {
		snippets, err := c.Query(ctx, query, snippetsPerQuery)
		if err != nil {
			c.logger.Warn("knowledge base retrieval failed", "query", query, "error", err)
			continue
		}

		for _, snippet := range snippets {
			key := snippet.Text
			if len(key) > dedupePrefixLen {
				key = key[:dedupePrefixLen]
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			collected = append(collected, snippet)
			if len(collected) >= maxSnippets {
				return formatSnippets(collected)
			}
		}
	}

	return formatSnippets(collected)
}

// leadQueries builds the retrieval queries for one lead.
func leadQueries(lead models.Lead, profileHint string) []string {
	queries := []string{}
	if lead.Company != "" {
		queries = append(queries, fmt.Sprintf("case studies and results for companies like %s", lead.Company))
	}
	if profileHint != "" {
		queries = append(queries, fmt.Sprintf("value proposition for %s", profileHint))
	}
	if desc := lead.FullDescription(); desc != "" && desc != "No description available." {
		queries = append(queries, desc)
	}
	if len(queries) == 0 {
		queries = append(queries, "product overview and key benefits")
	}
	return queries
}

func formatSnippets(snippets []Snippet) string {
	if len(snippets) == 0 {
		return ""
	}

	var b strings.Builder
	for _, s := range snippets {
		label := s.Category
		if s.Source != "" {
			if label != "" {
				label += "/"
			}
			label += s.Source
		}
		if label == "" {
			label = "kb"
		}
		fmt.Fprintf(&b, "[%s] %s\n", label, strings.TrimSpace(s.Text))
	}
	return b.String()
}

// collectionIDFor resolves and caches the collection ID.
func (c *Client) collectionIDFor(ctx context.Context) (string, error) {
	if c.collectionID != "" {
		return c.collectionID, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/collections/"+c.collection, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to resolve collection: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read collection response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("collection %q not available: status %d", c.collection, resp.StatusCode)
	}

	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", fmt.Errorf("collection %q has no id", c.collection)
	}
	c.collectionID = id
	return id, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chroma API error: %s (status %d)", string(body), resp.StatusCode)
	}
	return body, nil
}
