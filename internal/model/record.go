// Package model defines the lead, record, and match types shared across the
// pipeline.
package model

import (
	"fmt"
	"strings"
)

// Canonical field names used by the dedupe engine. Records coming out of
// Normalize use these keys regardless of what the upstream source called them.
const (
	FieldEmail    = "email"
	FieldLinkedIn = "linkedin_url"
	FieldWebsite  = "website"
	FieldCompany  = "company"
	FieldName     = "name"
)

// fieldAliases maps the field-name spellings seen across scrapers, CSV
// exports, and Airtable views to their canonical keys. Applied once by
// Normalize, before any comparison.
var fieldAliases = map[string]string{
	"full_name":       FieldName,
	"contact_name":    FieldName,
	"first_name":      "first_name", // kept distinct; Lead splits it out
	"linkedin":        FieldLinkedIn,
	"linkedin_url":    FieldLinkedIn,
	"linked_in":       FieldLinkedIn,
	"company_name":    FieldCompany,
	"organization":    FieldCompany,
	"organisation":    FieldCompany,
	"email_address":   FieldEmail,
	"work_email":      FieldEmail,
	"url":             FieldWebsite,
	"site":            FieldWebsite,
	"company_website": FieldWebsite,
	"web_site":        FieldWebsite,
	"domain":          FieldWebsite,
}

// Record is a schema-loose view of a lead: field name to value, where values
// may be strings, booleans, numbers, or nil. Matching logic only ever reads
// the string cast; unknown fields are tolerated and ignored.
type Record map[string]any

// Normalize returns a new Record with every key canonicalized: lower-cased,
// spaces collapsed to underscores, and known aliases mapped to their
// canonical field name. Values are copied as-is. When two raw keys collapse
// to the same canonical key, a non-blank value wins over a blank one.
func Normalize(raw map[string]any) Record {
	out := make(Record, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		key = strings.ReplaceAll(key, " ", "_")
		if canon, ok := fieldAliases[key]; ok {
			key = canon
		}
		if existing, ok := out[key]; ok && strings.TrimSpace(asString(existing)) != "" {
			continue
		}
		out[key] = v
	}
	return out
}

// String returns the string cast of a field value. Missing fields, nil
// values, and empty strings all come back as "".
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok {
		return ""
	}
	return asString(v)
}

// IsBlank reports whether the field is missing or whitespace-only.
func (r Record) IsBlank(field string) bool {
	return strings.TrimSpace(r.String(field)) == ""
}

// PopulatedCount returns how many of the given fields carry a non-blank value.
func (r Record) PopulatedCount(fields []string) int {
	n := 0
	for _, f := range fields {
		if !r.IsBlank(f) {
			n++
		}
	}
	return n
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
