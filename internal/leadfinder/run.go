package leadfinder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/apexhq/salespilot/pkg/models"
)

const maxContactsPerRun = 500

// Marketing is the slice of the marketing API the finder needs.
type Marketing interface {
	SearchContacts(ctx context.Context, lifecycleStages []string, maxContacts int) ([]models.Contact, error)
	AssociationCount(ctx context.Context, contactID, objectType string) (int, error)
	CompanyForContact(ctx context.Context, contactID string) (*models.CompanyRecord, error)
}

// ContextProvider supplies enrichment context for a surfaced lead. Optional.
type ContextProvider interface {
	ContextForLead(ctx context.Context, lead models.Lead) string
}

// Generator drafts the personalized outreach email per surfaced lead.
type Generator interface {
	GenerateEmail(ctx context.Context, lead models.Lead, plan models.Plan, history []models.EmailRecord, kbContext, feedback string) (*models.EmailContent, error)
}

// Finder runs the engaged-lead discovery pipeline.
type Finder struct {
	marketing Marketing
	gen       Generator
	context   ContextProvider
	criteria  Criteria
	stages    []string
	topN      int
	logger    *slog.Logger
}

// FinderDeps dependencies for the lead finder
type FinderDeps struct {
	Marketing       Marketing
	Gen             Generator
	Context         ContextProvider
	Criteria        Criteria
	LifecycleStages []string
	TopN            int
	Logger          *slog.Logger
}

// NewFinder creates a lead finder.
func NewFinder(deps FinderDeps) *Finder {
	return &Finder{
		marketing: deps.Marketing,
		gen:       deps.Gen,
		context:   deps.Context,
		criteria:  deps.Criteria,
		stages:    deps.LifecycleStages,
		topN:      deps.TopN,
		logger:    deps.Logger.With("component", "leadfinder"),
	}
}

// Run scans marketing contacts and returns the top engaged, stale, targeted
// leads as a digest. Contacts already tied to a deal belong to the sales
// pipeline and are excluded up front. Each surfaced lead gets an enriched,
// personalized outreach draft.
func (f *Finder) Run(ctx context.Context, now time.Time) (*Digest, error) {
	contacts, err := f.marketing.SearchContacts(ctx, f.stages, maxContactsPerRun)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	f.logger.Info("contacts fetched", "count", len(contacts))

	var qualified []ScoredLead
	for _, contact := range contacts {
		if contact.Email == "" {
			continue
		}

		if !IsStale(contact, now, f.criteria.StaleThresholdDays) {
			continue
		}

		deals, err := f.marketing.AssociationCount(ctx, contact.ID, "deals")
		if err != nil {
			f.logger.Warn("failed to count deals", "contact_id", contact.ID, "error", err)
		}
		if deals > 0 {
			f.logger.Debug("contact has an open deal, skipping",
				"email", contact.Email, "deals", deals)
			continue
		}

		company, err := f.marketing.CompanyForContact(ctx, contact.ID)
		if err != nil {
			f.logger.Warn("failed to resolve company", "contact_id", contact.ID, "error", err)
		}

		if ok, reason := f.criteria.PassesFilters(contact, company); !ok {
			f.logger.Debug("contact filtered out",
				"email", contact.Email, "reason", reason)
			continue
		}

		meetings, err := f.marketing.AssociationCount(ctx, contact.ID, "meetings")
		if err != nil {
			f.logger.Warn("failed to count meetings", "contact_id", contact.ID, "error", err)
		}

		qualified = append(qualified, ScoredLead{
			Contact:  contact,
			Company:  company,
			Score:    Score(contact, meetings),
			Meetings: meetings,
		})
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].Score > qualified[j].Score
	})

	digest := &Digest{
		GeneratedAt:     now,
		ContactsScanned: len(contacts),
		Qualified:       len(qualified),
		Leads:           qualified,
	}
	if len(digest.Leads) > f.topN {
		digest.Leads = digest.Leads[:f.topN]
	}

	f.draftEmails(ctx, digest.Leads)

	f.logger.Info("lead finder run complete",
		"scanned", digest.ContactsScanned,
		"qualified", digest.Qualified,
		"surfaced", len(digest.Leads))
	return digest, nil
}

// draftEmails generates one personalized outreach email per surfaced lead.
// A generation failure leaves the lead in the digest without a draft.
func (f *Finder) draftEmails(ctx context.Context, leads []ScoredLead) {
	if f.gen == nil {
		return
	}

	for i := range leads {
		lead := prospectLead(leads[i])

		plan, err := models.NewEmailPlan(lead.ID, models.TemplateDay0Intro,
			"engaged marketing contact with no open deal")
		if err != nil {
			continue
		}

		kbContext := ""
		if f.context != nil {
			kbContext = f.context.ContextForLead(ctx, lead)
		}

		content, err := f.gen.GenerateEmail(ctx, lead, plan, nil, kbContext, "")
		if err != nil || content == nil {
			f.logger.Warn("failed to draft outreach email",
				"email", lead.Email, "error", err)
			continue
		}
		leads[i].Draft = content
	}
}

// prospectLead shapes a marketing contact into a lead record for the
// generator and enrichment clients.
func prospectLead(scored ScoredLead) models.Lead {
	contact := scored.Contact

	lead := models.Lead{
		ID:        contact.ID,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Company:   contact.Company,
		Email:     contact.Email,
	}
	if scored.Company != nil {
		if lead.Company == "" {
			lead.Company = scored.Company.Name
		}
		lead.Description = scored.Company.Description
	}
	return lead
}
