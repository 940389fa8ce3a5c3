package dedupe

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

type fakeDeleter struct {
	deleted []string
	failOn  string
}

func (f *fakeDeleter) DeleteLead(_ context.Context, id string) error {
	if id == f.failOn {
		return eris.Errorf("delete %s refused", id)
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func group(ids ...string) model.DuplicateGroup {
	g := model.DuplicateGroup{MatchingField: "email", MatchingValue: "a@x.com"}
	for _, id := range ids {
		g.Records = append(g.Records, model.Record{"id": id, "email": "a@x.com"})
	}
	return g
}

func TestResolveEmptyInput(t *testing.T) {
	result := NewResolver(nil).Resolve(context.Background(), nil, StrategyMostRecent)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.DuplicatesProcessed)
	assert.Equal(t, 0, result.RecordsMerged)
	assert.Equal(t, 0, result.RecordsDeleted)
	assert.Empty(t, result.Errors)
}

func TestResolveDryRun(t *testing.T) {
	groups := []model.DuplicateGroup{group("1", "2", "3")}

	result := NewResolver(nil).Resolve(context.Background(), groups, StrategyMostRecent)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.DuplicatesProcessed)
	assert.Equal(t, 2, result.RecordsDeleted)
	// Dry run still reports which record survives.
	assert.Equal(t, "1", groups[0].PrimaryRecord.String("id"))
	require.Len(t, groups[0].DuplicateRecords, 2)
}

func TestResolveDeletesDuplicates(t *testing.T) {
	deleter := &fakeDeleter{}
	groups := []model.DuplicateGroup{group("1", "2", "3"), group("4", "5")}

	result := NewResolver(deleter).Resolve(context.Background(), groups, StrategyHighestQuality)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.DuplicatesProcessed)
	assert.Equal(t, 3, result.RecordsDeleted)
	assert.Equal(t, []string{"2", "3", "5"}, deleter.deleted)
}

func TestResolveMergeCountsMerged(t *testing.T) {
	result := NewResolver(nil).Resolve(context.Background(),
		[]model.DuplicateGroup{group("1", "2")}, StrategyMerge)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.RecordsMerged)
}

func TestResolvePerGroupErrors(t *testing.T) {
	deleter := &fakeDeleter{failOn: "2"}
	groups := []model.DuplicateGroup{group("1", "2"), group("3", "4")}

	result := NewResolver(deleter).Resolve(context.Background(), groups, StrategyMostRecent)

	// One group failed, the other still processed.
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.DuplicatesProcessed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "delete lead 2")
	assert.Equal(t, []string{"4"}, deleter.deleted)
}

func TestResolveUndersizedGroup(t *testing.T) {
	groups := []model.DuplicateGroup{group("1")}

	result := NewResolver(nil).Resolve(context.Background(), groups, StrategyMostRecent)

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.DuplicatesProcessed)
	require.Len(t, result.Errors, 1)
}

func TestResolveMissingID(t *testing.T) {
	groups := []model.DuplicateGroup{{
		MatchingField: "email",
		MatchingValue: "a@x.com",
		Records: []model.Record{
			{"id": "1", "email": "a@x.com"},
			{"email": "a@x.com"}, // airtable-only record, no local id
		},
	}}

	result := NewResolver(&fakeDeleter{}).Resolve(context.Background(), groups, StrategyMostRecent)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no local id")
}

func TestResolveUnknownStrategy(t *testing.T) {
	result := NewResolver(nil).Resolve(context.Background(),
		[]model.DuplicateGroup{group("1", "2")}, Strategy("bogus"))

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"most_recent", "highest_quality", "merge"} {
		parsed, err := ParseStrategy(s)
		require.NoError(t, err)
		assert.Equal(t, Strategy(s), parsed)
	}

	_, err := ParseStrategy("nope")
	assert.Error(t, err)
}
