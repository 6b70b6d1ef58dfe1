package enrich

import (
	"context"
	"log/slog"
	"strings"

	"github.com/apexhq/salespilot/internal/kb"
	"github.com/apexhq/salespilot/pkg/models"
)

// Provider assembles optional prompt context for a lead from the enrichment
// services and the knowledge base. Any of the clients may be nil; failures
// degrade to whatever context is available.
type Provider struct {
	apollo    *ApolloClient
	fireflies *FirefliesClient
	kb        *kb.Client
	logger    *slog.Logger
}

// NewProvider creates a context provider from whichever clients are
// configured.
func NewProvider(apollo *ApolloClient, fireflies *FirefliesClient, kbClient *kb.Client, logger *slog.Logger) *Provider {
	return &Provider{
		apollo:    apollo,
		fireflies: fireflies,
		kb:        kbClient,
		logger:    logger.With("component", "enrich"),
	}
}

// ContextForLead returns a prompt block describing the lead's profile, past
// meetings and relevant knowledge-base material.
func (p *Provider) ContextForLead(ctx context.Context, lead models.Lead) string {
	var blocks []string
	var profile *PersonProfile

	if p.apollo != nil && lead.Email != "" {
		match, err := p.apollo.MatchByEmail(ctx, lead.Email)
		if err != nil {
			p.logger.Warn("enrichment lookup failed", "email", lead.Email, "error", err)
		} else if match != nil {
			profile = match
			blocks = append(blocks, profile.FormatContext())
		}
	}

	if p.fireflies != nil && lead.Company != "" {
		meetings, err := p.fireflies.MeetingsByTitle(ctx, lead.Company)
		if err != nil {
			p.logger.Warn("meeting lookup failed", "company", lead.Company, "error", err)
		} else if block := FormatMeetings(meetings); block != "" {
			blocks = append(blocks, block)
		}
	}

	if p.kb != nil {
		hint := ""
		if profile != nil {
			hint = profile.Title
			if profile.Industry != "" {
				hint = strings.TrimSpace(hint + " in " + profile.Industry)
			}
		}
		if block := p.kb.ContextForLead(ctx, lead, hint); block != "" {
			blocks = append(blocks, block)
		}
	}

	return strings.Join(blocks, "\n")
}
