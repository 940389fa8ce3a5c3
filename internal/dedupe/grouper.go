package dedupe

import (
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Grouper partitions a flat record list into duplicate groups.
type Grouper struct {
	Fields    []string
	Threshold float64
}

// NewGrouper creates a Grouper; nil fields and a zero threshold fall back to
// the package defaults.
func NewGrouper(fields []string, threshold float64) *Grouper {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Grouper{Fields: fields, Threshold: threshold}
}

// FindDuplicates partitions records into duplicate groups with a single
// left-to-right anchor pass: each unprocessed record anchors a candidate
// group and every later unprocessed record matching the anchor joins it.
// Members are only ever compared against the anchor, so A~B~C chains group
// together even when A and C alone would not match. Groups of one are
// discarded.
func (g *Grouper) FindDuplicates(records []model.Record) []model.DuplicateGroup {
	var groups []model.DuplicateGroup
	processed := make(map[int]bool, len(records))

	for i := range records {
		if processed[i] {
			continue
		}
		processed[i] = true
		members := []model.Record{records[i]}

		for j := i + 1; j < len(records); j++ {
			if processed[j] {
				continue
			}
			match := Compare(records[i], records[j], g.Fields, g.Threshold)
			if match.IsDuplicate {
				members = append(members, records[j])
				processed[j] = true
			}
		}

		if len(members) < 2 {
			continue
		}
		groups = append(groups, g.finalize(members))
	}

	zap.L().Debug("dedupe: grouped records",
		zap.Int("records", len(records)),
		zap.Int("groups", len(groups)),
	)
	return groups
}

// finalize picks the field that best explains the group and computes the
// group confidence as the mean pairwise match confidence.
func (g *Grouper) finalize(members []model.Record) model.DuplicateGroup {
	field := g.bestField(members)
	return model.DuplicateGroup{
		MatchingField:   field,
		MatchingValue:   members[0].String(field),
		Records:         members,
		ConfidenceScore: g.meanPairwiseConfidence(members),
	}
}

// bestField scores each configured field by coverage (fraction of members
// with a value) times the mean pairwise similarity of the non-blank values,
// and returns the highest scorer. Ties keep the earlier field in configured
// order.
func (g *Grouper) bestField(members []model.Record) string {
	best := g.Fields[0]
	bestScore := -1.0

	for _, field := range g.Fields {
		var values []string
		for _, rec := range members {
			if !rec.IsBlank(field) {
				values = append(values, rec.String(field))
			}
		}
		if len(values) == 0 {
			continue
		}
		coverage := float64(len(values)) / float64(len(members))

		sim, pairs := 0.0, 0
		for i := 0; i < len(values); i++ {
			for j := i + 1; j < len(values); j++ {
				sim += Similarity(values[i], values[j])
				pairs++
			}
		}
		avgSim := 1.0 // a single value trivially agrees with itself
		if pairs > 0 {
			avgSim = sim / float64(pairs)
		}

		if score := coverage * avgSim; score > bestScore {
			best = field
			bestScore = score
		}
	}
	return best
}

func (g *Grouper) meanPairwiseConfidence(members []model.Record) float64 {
	total, pairs := 0.0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			total += Compare(members[i], members[j], g.Fields, g.Threshold).ConfidenceScore
			pairs++
		}
	}
	if pairs == 0 {
		return 0.0
	}
	return total / float64(pairs)
}
