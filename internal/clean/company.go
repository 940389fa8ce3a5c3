// Package clean normalizes and validates scraped lead fields before they
// enter the store or the dedupe engine.
package clean

import (
	"regexp"
	"strings"
)

var (
	multiSpaceRe     = regexp.MustCompile(`\s{2,}`)
	commaSuffixRe    = regexp.MustCompile(`\s+,\s*`)
	trailingDebrisRe = regexp.MustCompile(`\s*[|\-–—:,]\s*$`)
)

// Company cleans a raw company name: trims, strips wrapping quotes, collapses
// whitespace, normalizes the comma before a legal suffix ("Acme , Inc" →
// "Acme, Inc"), title-cases all-caps names, and strips trailing separator
// debris left by page-title scrapes ("Acme |", "Acme -"). Returns the
// cleaned value and whether it differs from the input.
func Company(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	name = strings.Trim(name, `"'`)
	name = multiSpaceRe.ReplaceAllString(name, " ")
	name = commaSuffixRe.ReplaceAllString(name, ", ")
	name = trailingDebrisRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if isAllCaps(name) {
		name = titleCase(name)
	}

	return name, name != raw
}

// isAllCaps reports whether the name has letters and none of them lowercase.
// Short names (likely acronyms) are left alone.
func isAllCaps(s string) bool {
	if len(s) <= 4 {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
