package clean

import "github.com/sells-group/outreach-cli/internal/model"

// Apply cleans a lead's company and website fields in place, re-validates,
// and stores the resulting confidence. Returns whether any field changed.
func Apply(l *model.Lead) bool {
	changed := false

	if company, ok := Company(l.Company); ok {
		l.Company = company
		changed = true
	}
	if site, ok := Website(l.Website); ok && site != "" {
		l.Website = site
		changed = true
	}

	v := Validate(l.Record())
	if v.Confidence != l.Confidence {
		l.Confidence = v.Confidence
		changed = true
	}
	return changed
}
