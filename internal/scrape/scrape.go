// Package scrape discovers candidate leads via web search.
package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/clean"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/jina"
)

// Scraper turns search queries into candidate leads. Results carry only
// company, website, and notes; enrichment fills in contact details.
type Scraper struct {
	search jina.Client
}

// NewScraper creates a Scraper.
func NewScraper(search jina.Client) *Scraper {
	return &Scraper{search: search}
}

// skipHosts are domains that show up in search results but are never a
// company's own website.
var skipHosts = []string{
	"linkedin.com",
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"youtube.com",
	"yelp.com",
	"wikipedia.org",
	"glassdoor.com",
	"indeed.com",
	"crunchbase.com",
	"bbb.org",
	"mapquest.com",
	"yellowpages.com",
}

// Run searches for the query and returns candidate leads, one per distinct
// website. Directory and social-network hits are dropped.
func (s *Scraper) Run(ctx context.Context, query string) ([]*model.Lead, error) {
	results, err := s.search.Search(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: search")
	}

	now := time.Now().UTC()
	seen := make(map[string]bool)
	var leads []*model.Lead

	for _, r := range results {
		website, _ := clean.Website(r.URL)
		if website == "" {
			continue
		}
		domain := clean.Domain(website)
		if domain == "" || seen[domain] || skipDomain(domain) {
			continue
		}
		seen[domain] = true

		company, _ := clean.Company(companyFromResult(r, domain))
		leads = append(leads, &model.Lead{
			ID:        uuid.NewString(),
			Company:   company,
			Website:   website,
			Notes:     strings.TrimSpace(r.Description),
			Source:    "scrape:" + query,
			Status:    model.LeadStatusNew,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	zap.L().Info("scrape: search complete",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Int("candidates", len(leads)),
	)
	return leads, nil
}

func skipDomain(domain string) bool {
	for _, h := range skipHosts {
		if domain == h || strings.HasSuffix(domain, "."+h) {
			return true
		}
	}
	return false
}

// companyFromResult derives a company name from a search hit. Titles like
// "Acme Plumbing | Home" or "Contact Us - Acme Plumbing" carry the name
// around separator debris; fall back to the bare domain when the title is
// useless.
func companyFromResult(r jina.SearchResult, domain string) string {
	title := strings.TrimSpace(r.Title)
	for _, sep := range []string{" | ", " - ", " – ", " :: "} {
		if i := strings.Index(title, sep); i > 0 {
			left := strings.TrimSpace(title[:i])
			right := strings.TrimSpace(title[i+len(sep):])
			if isBoilerplate(left) {
				title = right
			} else {
				title = left
			}
			break
		}
	}
	if title == "" || isBoilerplate(title) {
		return strings.TrimSuffix(domain, ".com")
	}
	return title
}

var boilerplateTitles = map[string]bool{
	"home":       true,
	"homepage":   true,
	"welcome":    true,
	"contact":    true,
	"contact us": true,
	"about":      true,
	"about us":   true,
	"services":   true,
}

func isBoilerplate(s string) bool {
	return boilerplateTitles[strings.ToLower(strings.TrimSpace(s))]
}
