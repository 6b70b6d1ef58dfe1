package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const gmailAPIBase = "https://gmail.googleapis.com/gmail/v1/users/me"

// ThreadContext carries the identifiers needed to keep an outgoing email in
// an existing conversation thread.
type ThreadContext struct {
	ThreadID   string
	InReplyTo  string
	References string
	Subject    string
}

// Client sends email through the Gmail REST API on behalf of a single
// mailbox, authorized with a refresh token.
type Client struct {
	from       string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config for the Gmail client
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FromEmail    string
}

// NewClient creates a Gmail API client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
	}

	httpClient := oauth2.NewClient(context.Background(), oc.TokenSource(
		context.Background(),
		&oauth2.Token{RefreshToken: cfg.RefreshToken},
	))
	httpClient.Timeout = 30 * time.Second

	return &Client{
		from:       cfg.FromEmail,
		httpClient: httpClient,
		logger:     logger.With("component", "mailer"),
	}
}

// FindThread looks up the latest conversation with the given address and
// returns the identifiers needed to reply in-thread. A nil result with no
// error means no prior thread exists.
func (c *Client) FindThread(ctx context.Context, address string) (*ThreadContext, error) {
	query := url.Values{
		"q":          {fmt.Sprintf("from:%s OR to:%s", address, address)},
		"maxResults": {"1"},
	}

	body, err := c.get(ctx, gmailAPIBase+"/threads?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to search threads: %w", err)
	}

	threadID := gjson.GetBytes(body, "threads.0.id").String()
	if threadID == "" {
		return nil, nil
	}

	detail, err := c.get(ctx, gmailAPIBase+"/threads/"+threadID+"?format=metadata"+
		"&metadataHeaders=Message-ID&metadataHeaders=References&metadataHeaders=Subject")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread %s: %w", threadID, err)
	}

	tc := &ThreadContext{ThreadID: threadID}

	messages := gjson.GetBytes(detail, "messages").Array()
	if len(messages) > 0 {
		last := messages[len(messages)-1]
		for _, header := range last.Get("payload.headers").Array() {
			switch strings.ToLower(header.Get("name").String()) {
			case "message-id":
				tc.InReplyTo = header.Get("value").String()
			case "references":
				tc.References = header.Get("value").String()
			case "subject":
				tc.Subject = header.Get("value").String()
			}
		}
	}

	// The reply References chain is the previous chain plus the message
	// being replied to.
	if tc.InReplyTo != "" {
		tc.References = strings.TrimSpace(tc.References + " " + tc.InReplyTo)
	}

	return tc, nil
}

// Send delivers an HTML email. When thread is non-nil the message is sent as
// a reply on that thread with a Re: subject.
func (c *Client) Send(ctx context.Context, to, subject, htmlBody string, thread *ThreadContext) error {
	if thread != nil && !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	raw, err := buildMessage(c.from, to, subject, htmlBody, thread)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	payload, _ := sjson.Set("", "raw", base64.URLEncoding.EncodeToString(raw))
	if thread != nil && thread.ThreadID != "" {
		payload, _ = sjson.Set(payload, "threadId", thread.ThreadID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		gmailAPIBase+"/messages/send", strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gmail API error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	c.logger.Info("email sent",
		"to", to,
		"message_id", gjson.GetBytes(respBody, "id").String(),
		"threaded", thread != nil)
	return nil
}

// buildMessage assembles an RFC 822 HTML message.
func buildMessage(from, to, subject, htmlBody string, thread *ThreadContext) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})

	if thread != nil {
		if thread.InReplyTo != "" {
			h.Set("In-Reply-To", thread.InReplyTo)
		}
		if thread.References != "" {
			h.Set("References", thread.References)
		}
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, htmlBody); err != nil {
		return nil, fmt.Errorf("failed to write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize message: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

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
		return nil, fmt.Errorf("gmail API error: %s (status %d)", string(body), resp.StatusCode)
	}
	return body, nil
}
