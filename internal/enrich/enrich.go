// Package enrich fills in contact details for candidate leads by reading
// their websites.
package enrich

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/clean"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/pkg/firecrawl"
	"github.com/sells-group/outreach-cli/pkg/jina"
)

// DefaultConcurrency bounds how many websites are read at once.
const DefaultConcurrency = 5

var (
	mailtoRe   = regexp.MustCompile(`(?i)mailto:([a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,})`)
	emailRe    = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	linkedinRe = regexp.MustCompile(`(?i)https?://(?:www\.)?linkedin\.com/(?:company|in)/[a-zA-Z0-9\-_%]+/?`)
)

// ignoredEmailSuffixes filter out image filenames and tracking addresses
// that match the email regex.
var ignoredEmailSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}

// ignoredEmailPrefixes are mailbox names that are never a usable contact.
var ignoredEmailPrefixes = []string{"noreply@", "no-reply@", "donotreply@", "mailer-daemon@", "postmaster@"}

// Enricher reads lead websites and extracts contact details. The Firecrawl
// client is an optional fallback for pages Jina cannot fetch.
type Enricher struct {
	reader      jina.Client
	fallback    firecrawl.Client
	concurrency int
}

// Option configures the Enricher.
type Option func(*Enricher)

// WithFallback sets a Firecrawl client used when the Jina read fails.
func WithFallback(fc firecrawl.Client) Option {
	return func(e *Enricher) {
		e.fallback = fc
	}
}

// WithConcurrency bounds parallel website reads.
func WithConcurrency(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEnricher creates an Enricher.
func NewEnricher(reader jina.Client, opts ...Option) *Enricher {
	e := &Enricher{
		reader:      reader,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrichAll enriches every lead that has a website, in place, with bounded
// concurrency. Per-lead failures are logged and skipped; the rest of the
// batch proceeds. Returns the number of leads that gained at least one field.
func (e *Enricher) EnrichAll(ctx context.Context, leads []*model.Lead) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	enriched := make([]bool, len(leads))
	for i, lead := range leads {
		if strings.TrimSpace(lead.Website) == "" {
			continue
		}
		g.Go(func() error {
			changed, err := e.Enrich(ctx, lead)
			if err != nil {
				zap.L().Warn("enrich: lead failed",
					zap.String("website", lead.Website),
					zap.Error(err),
				)
				return nil
			}
			enriched[i] = changed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := 0
	for _, ok := range enriched {
		if ok {
			n++
		}
	}
	return n, nil
}

// Enrich reads the lead's website and fills in email, LinkedIn URL, and
// company name where they are missing. Reports whether any field changed.
func (e *Enricher) Enrich(ctx context.Context, lead *model.Lead) (bool, error) {
	content, err := e.fetch(ctx, lead.Website)
	if err != nil {
		return false, err
	}

	changed := false
	if lead.Email == "" {
		if email := extractEmail(content); email != "" {
			lead.Email = email
			changed = true
		}
	}
	if lead.LinkedInURL == "" {
		if li := extractLinkedIn(content); li != "" {
			lead.LinkedInURL = li
			changed = true
		}
	}
	if lead.Company == "" {
		if company := clean.Domain(lead.Website); company != "" {
			lead.Company, _ = clean.Company(strings.TrimSuffix(company, ".com"))
			changed = true
		}
	}
	return changed, nil
}

func (e *Enricher) fetch(ctx context.Context, website string) (string, error) {
	page, err := e.reader.Read(ctx, website)
	if err == nil && !blockedContent(page.Content) {
		return page.Content, nil
	}
	if err == nil {
		err = eris.Errorf("enrich: %s returned an anti-bot challenge page", website)
	}
	if e.fallback == nil {
		return "", err
	}

	zap.L().Debug("enrich: reader failed, trying firecrawl",
		zap.String("website", website),
		zap.Error(err),
	)
	return e.fallback.Scrape(ctx, website)
}

// blockMarkers identify challenge pages that come back through the reader as
// if they were real content. Extracting contacts from them yields garbage.
var blockMarkers = []string{
	"checking your browser",
	"cf-browser-verification",
	"verify you are a human",
	"enable javascript and cookies",
	"recaptcha",
	"hcaptcha",
}

func blockedContent(content string) bool {
	// Real pages mention captchas too; only short bodies are suspect.
	if len(content) > 4000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// extractEmail returns the best contact email found in the page content.
// mailto: links win over bare text matches.
func extractEmail(content string) string {
	if m := mailtoRe.FindStringSubmatch(content); m != nil {
		if email := usableEmail(m[1]); email != "" {
			return email
		}
	}
	for _, m := range emailRe.FindAllString(content, 10) {
		if email := usableEmail(m); email != "" {
			return email
		}
	}
	return ""
}

func usableEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	for _, suffix := range ignoredEmailSuffixes {
		if strings.HasSuffix(email, suffix) {
			return ""
		}
	}
	for _, prefix := range ignoredEmailPrefixes {
		if strings.HasPrefix(email, prefix) {
			return ""
		}
	}
	return email
}

func extractLinkedIn(content string) string {
	m := linkedinRe.FindString(content)
	return strings.TrimSuffix(m, "/")
}
