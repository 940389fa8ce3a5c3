package dedupe

import (
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// DefaultThreshold is the similarity score at or above which two field
// values are considered a match.
const DefaultThreshold = 0.85

// DefaultFields is the field set compared when the caller does not supply
// one.
var DefaultFields = []string{
	model.FieldEmail,
	model.FieldLinkedIn,
	model.FieldWebsite,
	model.FieldCompany,
	model.FieldName,
}

// Compare scores two records field-by-field. Fields blank on either side are
// skipped and contribute nothing. ConfidenceScore is the max of the computed
// field scores; with no scorable fields it is 0.0 and the pair is not a
// duplicate.
func Compare(a, b model.Record, fields []string, threshold float64) model.MatchResult {
	result := model.MatchResult{
		FieldScores: make(map[string]float64, len(fields)),
	}

	for _, field := range fields {
		va := strings.TrimSpace(a.String(field))
		vb := strings.TrimSpace(b.String(field))
		if va == "" || vb == "" {
			continue
		}
		score := Similarity(va, vb)
		result.FieldScores[field] = score
		if score >= threshold {
			result.MatchingFields = append(result.MatchingFields, field)
		}
		if score > result.ConfidenceScore {
			result.ConfidenceScore = score
		}
	}

	result.IsDuplicate = len(result.FieldScores) > 0 && result.ConfidenceScore >= threshold
	return result
}
