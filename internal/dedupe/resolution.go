package dedupe

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Strategy selects how a duplicate group collapses to one surviving record.
type Strategy string

const (
	// StrategyMostRecent keeps the first record in the group. The strategy
	// name is aspirational: update timestamps are not inspected yet.
	// TODO: order by updated_at once Airtable records carry a reliable one.
	StrategyMostRecent Strategy = "most_recent"
	// StrategyHighestQuality keeps the first record in the group.
	StrategyHighestQuality Strategy = "highest_quality"
	// StrategyMerge keeps the first record and reports it as merged. No
	// field-level union is performed.
	StrategyMerge Strategy = "merge"
)

// ParseStrategy validates a strategy name from the CLI.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMostRecent, StrategyHighestQuality, StrategyMerge:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown resolution strategy %q", s)
	}
}

// Deleter removes a duplicate record from the local store. Resolution only
// ever writes locally; Airtable rows are never deleted from here.
type Deleter interface {
	DeleteLead(ctx context.Context, id string) error
}

// Resolver applies a resolution strategy to duplicate groups. With a nil
// Deleter every run is a dry run that only reports counts.
type Resolver struct {
	deleter Deleter
}

// NewResolver creates a Resolver. Pass nil for a dry run.
func NewResolver(deleter Deleter) *Resolver {
	return &Resolver{deleter: deleter}
}

// Resolve applies the strategy to each group. All three strategies keep the
// group's first record and drop the rest. A failure in one group is appended
// to Errors and processing continues; DuplicatesProcessed counts successful
// groups only.
func (r *Resolver) Resolve(ctx context.Context, groups []model.DuplicateGroup, strategy Strategy) model.ResolutionResult {
	result := model.ResolutionResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	for i := range groups {
		if err := r.resolveGroup(ctx, &groups[i], strategy); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.DuplicatesProcessed++
		result.RecordsDeleted += len(groups[i].DuplicateRecords)
		if strategy == StrategyMerge {
			result.RecordsMerged++
		}
	}

	result.Success = len(result.Errors) == 0
	zap.L().Info("dedupe: resolution complete",
		zap.String("strategy", string(strategy)),
		zap.Int("processed", result.DuplicatesProcessed),
		zap.Int("deleted", result.RecordsDeleted),
		zap.Int("errors", len(result.Errors)),
	)
	return result
}

func (r *Resolver) resolveGroup(ctx context.Context, group *model.DuplicateGroup, strategy Strategy) error {
	if len(group.Records) < 2 {
		return fmt.Errorf("group on %s=%q has %d record(s), need at least 2",
			group.MatchingField, group.MatchingValue, len(group.Records))
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return err
	}

	group.PrimaryRecord = group.Records[0]
	group.DuplicateRecords = group.Records[1:]

	if r.deleter == nil {
		return nil
	}
	for _, rec := range group.DuplicateRecords {
		id := rec.String("id")
		if id == "" {
			return fmt.Errorf("duplicate of %s=%q has no local id", group.MatchingField, group.MatchingValue)
		}
		if err := r.deleter.DeleteLead(ctx, id); err != nil {
			return fmt.Errorf("delete lead %s: %v", id, err)
		}
	}
	return nil
}
