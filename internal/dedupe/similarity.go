// Package dedupe implements duplicate detection across the local lead store
// and Airtable: field similarity scoring, record matching, intra-system
// grouping, cross-system pairing, and resolution.
package dedupe

import "strings"

// Similarity computes a normalized [0,1] similarity between two field values.
// Both sides are trimmed and lower-cased first. Blank input on either side
// scores 0.0, even when both are blank; missing data is never evidence of a
// match. Emails compare exact-only (near-miss emails are different inboxes),
// URLs compare exact after scheme/www/trailing-slash normalization, and
// everything else falls back to a Ratcliff/Obershelp ratio.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == "" || b == "" {
		return 0.0
	}

	if strings.Contains(a, "@") && strings.Contains(b, "@") {
		if a == b {
			return 1.0
		}
		return 0.0
	}

	if isURL(a) || isURL(b) {
		if normalizeURL(a) == normalizeURL(b) {
			return 1.0
		}
		return 0.0
	}

	return ratio(a, b)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// normalizeURL strips the http(s) scheme, one leading "www.", and one
// trailing slash. Input is already lower-cased.
func normalizeURL(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimSuffix(s, "/")
	return s
}

// ratio is the Ratcliff/Obershelp similarity: twice the total length of the
// greedy longest-matching-block decomposition, divided by the combined
// length. Operates on runes so multi-byte names score sanely.
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0.0
	}
	m := matchLen(ra, rb, 0, len(ra), 0, len(rb))
	return 2.0 * float64(m) / float64(total)
}

// matchLen sums matching-block lengths by finding the leftmost-longest
// common block and recursing on the slices to its left and right.
func matchLen(a, b []rune, alo, ahi, blo, bhi int) int {
	ai, bj, size := longestMatch(a, b, alo, ahi, blo, bhi)
	if size == 0 {
		return 0
	}
	n := size
	n += matchLen(a, b, alo, ai, blo, bj)
	n += matchLen(a, b, ai+size, ahi, bj+size, bhi)
	return n
}

// longestMatch finds the longest block of equal runes between a[alo:ahi] and
// b[blo:bhi], preferring the leftmost block in a (then in b) on ties.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		next := make(map[int]int)
		for j := blo; j < bhi; j++ {
			if a[i] != b[j] {
				continue
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	return besti, bestj, bestsize
}
