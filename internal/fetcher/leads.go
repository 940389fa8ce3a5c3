package fetcher

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// MapLeads converts a header row plus data rows into Leads. Column names are
// canonicalized through the same alias table the dedupe engine uses, so a
// vendor file with "Company Name" and "Work Email" columns lands in the right
// struct fields. Rows with no email, website, or name are skipped.
func MapLeads(header []string, rows [][]string, source string) []*model.Lead {
	now := time.Now().UTC()
	leads := make([]*model.Lead, 0, len(rows))
	skipped := 0

	for _, row := range rows {
		raw := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) {
				raw[col] = row[i]
			}
		}
		rec := model.Normalize(raw)

		lead := &model.Lead{
			ID:          uuid.NewString(),
			Name:        rec.String(model.FieldName),
			Company:     rec.String(model.FieldCompany),
			Email:       rec.String(model.FieldEmail),
			Website:     rec.String(model.FieldWebsite),
			LinkedInURL: rec.String(model.FieldLinkedIn),
			Phone:       rec.String("phone"),
			City:        rec.String("city"),
			State:       rec.String("state"),
			Source:      source,
			Status:      model.LeadStatusNew,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if lead.Email == "" && lead.Website == "" && lead.Name == "" {
			skipped++
			continue
		}
		leads = append(leads, lead)
	}

	if skipped > 0 {
		zap.L().Debug("fetcher: skipped unusable rows", zap.Int("skipped", skipped))
	}
	return leads
}
