package dedupe

import (
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// FindCrossSystemDuplicates pairwise-compares every local database record
// against every Airtable record and returns the pairs that represent the
// same lead in both systems. Exhaustive O(n·m) with no email pre-bucketing;
// fine for the hundreds of leads this tool manages, not for millions.
func FindCrossSystemDuplicates(dbRecords, airtableRecords []model.Record) []model.CrossSystemDuplicate {
	var dupes []model.CrossSystemDuplicate

	for _, dbRec := range dbRecords {
		for _, atRec := range airtableRecords {
			match := Compare(dbRec, atRec, DefaultFields, DefaultThreshold)
			if !match.IsDuplicate {
				continue
			}
			dupes = append(dupes, model.CrossSystemDuplicate{
				DatabaseRecord:   dbRec,
				AirtableRecord:   atRec,
				MatchingFields:   match.MatchingFields,
				ConfidenceScore:  match.ConfidenceScore,
				SuggestedPrimary: suggestPrimary(dbRec, atRec),
			})
		}
	}

	zap.L().Debug("dedupe: cross-system scan",
		zap.Int("db_records", len(dbRecords)),
		zap.Int("airtable_records", len(airtableRecords)),
		zap.Int("duplicates", len(dupes)),
	)
	return dupes
}

// suggestPrimary prefers the side with strictly more populated fields; ties
// default to the database side.
func suggestPrimary(dbRec, atRec model.Record) string {
	if atRec.PopulatedCount(DefaultFields) > dbRec.PopulatedCount(DefaultFields) {
		return model.PrimaryAirtable
	}
	return model.PrimaryDatabase
}
