package clean

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes lists entity suffixes stripped when building a match key.
var legalSuffixes = []string{
	" LLC", " L.L.C.", " L.L.C",
	" INC", " INC.", " INCORPORATED",
	" CORP", " CORP.", " CORPORATION",
	" LTD", " LTD.", " LIMITED",
	" LP", " L.P.",
	" LLP", " L.L.P.",
	" PC", " P.C.",
	" PA", " P.A.",
	" CO", " CO.",
	" PLC", " P.L.C.",
	" DBA", " D/B/A",
	" PLLC",
}

// diacriticFolder decomposes to NFD, drops combining marks, and recomposes,
// so "Café" keys the same as "Cafe".
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// MatchKey standardizes a company name into the comparison key used for
// grouping and cross-dataset matching:
//  1. Fold diacritics
//  2. Uppercase and trim
//  3. Strip one trailing legal suffix (LLC, Inc, Corp, ...)
//  4. Strip punctuation, mapping "&" to "AND"
//  5. Collapse runs of spaces
func MatchKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(diacriticFolder, name); err == nil {
		name = folded
	}
	name = strings.ToUpper(name)

	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		`"`, "",
		"&", " AND ",
		"-", " ",
		"/", " ",
		"(", " ",
		")", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
