package model

// FieldComparison is the outcome of comparing one field across two records.
type FieldComparison struct {
	Field string  `json:"field"`
	Score float64 `json:"score"`
}

// MatchResult is the outcome of comparing two records across a field set.
// ConfidenceScore is the max of the per-field scores, so one decisive field
// (an exact email match) is enough to flag a duplicate.
type MatchResult struct {
	IsDuplicate     bool               `json:"is_duplicate"`
	ConfidenceScore float64            `json:"confidence_score"`
	MatchingFields  []string           `json:"matching_fields"`
	FieldScores     map[string]float64 `json:"field_scores"`
}

// DuplicateGroup is a cluster of records judged to represent the same lead.
// Records always has at least two members.
type DuplicateGroup struct {
	MatchingField    string   `json:"matching_field"`
	MatchingValue    string   `json:"matching_value"`
	Records          []Record `json:"records"`
	ConfidenceScore  float64  `json:"confidence_score"`
	PrimaryRecord    Record   `json:"primary_record,omitempty"`
	DuplicateRecords []Record `json:"duplicate_records,omitempty"`
}

// Sides of a cross-system match, used for SuggestedPrimary.
const (
	PrimaryDatabase = "database"
	PrimaryAirtable = "airtable"
)

// CrossSystemDuplicate pairs a local database record with an Airtable record
// that represent the same lead.
type CrossSystemDuplicate struct {
	DatabaseRecord   Record   `json:"database_record"`
	AirtableRecord   Record   `json:"airtable_record"`
	MatchingFields   []string `json:"matching_fields"`
	ConfidenceScore  float64  `json:"confidence_score"`
	SuggestedPrimary string   `json:"suggested_primary"`
}

// ResolutionResult aggregates the outcome of resolving a batch of duplicate
// groups. Success is true only when Errors is empty.
type ResolutionResult struct {
	DuplicatesProcessed int      `json:"duplicates_processed"`
	RecordsMerged       int      `json:"records_merged"`
	RecordsDeleted      int      `json:"records_deleted"`
	Errors              []string `json:"errors"`
	Warnings            []string `json:"warnings"`
	Success             bool     `json:"success"`
}
