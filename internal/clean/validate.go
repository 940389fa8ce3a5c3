package clean

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Issue names a validation problem on one field.
type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validation is the confidence-scored outcome of validating a record.
// Confidence is passed weight over total applicable weight; a record with no
// populated fields scores 0.0.
type Validation struct {
	Confidence float64 `json:"confidence"`
	Issues     []Issue `json:"issues"`
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Field weights for validation scoring. Email dominates because it is the
// one field outreach cannot do without.
var fieldWeights = map[string]float64{
	model.FieldEmail:    0.35,
	model.FieldWebsite:  0.25,
	model.FieldLinkedIn: 0.10,
	model.FieldName:     0.15,
	model.FieldCompany:  0.15,
}

// Validate runs weighted field checks over a normalized record. Only
// populated fields count toward the applicable weight, so a sparse but
// correct record still scores high on what it has.
func Validate(rec model.Record) Validation {
	v := Validation{Issues: []Issue{}}
	var applicable, passed float64

	check := func(field string, ok bool, reason string) {
		if rec.IsBlank(field) {
			return
		}
		w := fieldWeights[field]
		applicable += w
		if ok {
			passed += w
		} else {
			v.Issues = append(v.Issues, Issue{Field: field, Reason: reason})
		}
	}

	check(model.FieldEmail, validEmail(rec.String(model.FieldEmail)), "malformed email address")
	check(model.FieldWebsite, validWebsite(rec.String(model.FieldWebsite)), "unparseable website")
	check(model.FieldLinkedIn, validLinkedIn(rec.String(model.FieldLinkedIn)), "not a linkedin.com URL")
	check(model.FieldName, validName(rec.String(model.FieldName)), "placeholder or single-character name")
	check(model.FieldCompany, validName(rec.String(model.FieldCompany)), "placeholder or single-character company")

	if applicable > 0 {
		v.Confidence = passed / applicable
	}
	return v
}

func validEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

func validWebsite(s string) bool {
	cleaned, _ := Website(s)
	return cleaned != ""
}

func validLinkedIn(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com")
}

var placeholders = map[string]bool{
	"unknown": true, "n/a": true, "na": true, "none": true, "test": true, "-": true,
}

func validName(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return len(s) >= 2 && !placeholders[s]
}
