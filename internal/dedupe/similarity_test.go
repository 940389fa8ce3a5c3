package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarityIdentical(t *testing.T) {
	for _, s := range []string{"acme", "John Doe", "https://acme.com", "a@x.com", "Ünïcode Nämé"} {
		assert.Equal(t, 1.0, Similarity(s, s), "similarity(%q, %q)", s, s)
	}
}

func TestSimilarityNormalizesCaseAndSpace(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("  Acme Inc ", "acme inc"))
	assert.Equal(t, 1.0, Similarity("JOHN@X.COM", "john@x.com"))
}

func TestSimilarityBlank(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", "anything"))
	assert.Equal(t, 0.0, Similarity("anything", ""))
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("   ", "acme"))
}

func TestSimilarityEmailExactOnly(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("a@x.com", "a@x.com"))
	// Near-miss emails are different inboxes.
	assert.Equal(t, 0.0, Similarity("a@x.com", "b@x.com"))
	assert.Equal(t, 0.0, Similarity("john.doe@x.com", "john.do@x.com"))
}

func TestSimilarityURLNormalization(t *testing.T) {
	cases := []struct{ a, b string }{
		{"https://acme.com", "http://acme.com"},
		{"https://acme.com", "https://www.acme.com"},
		{"https://acme.com/", "https://acme.com"},
		{"http://www.acme.com/", "https://acme.com"},
	}
	for _, tc := range cases {
		assert.Equal(t, 1.0, Similarity(tc.a, tc.b), "similarity(%q, %q)", tc.a, tc.b)
	}

	assert.Equal(t, 0.0, Similarity("https://acme.com", "https://acme.io"))
	// Path differences matter.
	assert.Equal(t, 0.0, Similarity("https://acme.com/about", "https://acme.com"))
}

func TestSimilarityFuzzyNames(t *testing.T) {
	score := Similarity("John Doe", "Jon Doe")
	assert.Greater(t, score, 0.85)
	assert.Less(t, score, 1.0)

	assert.Less(t, Similarity("Acme Inc", "Totally Different Co"), 0.5)
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := []struct{ a, b string }{
		{"John Doe", "Jon Doe"},
		{"Acme Inc", "Acme, Inc."},
		{"abcd", "cdab"},
	}
	for _, tc := range pairs {
		assert.InDelta(t, Similarity(tc.a, tc.b), Similarity(tc.b, tc.a), 1e-9)
	}
}

func TestRatioKnownValues(t *testing.T) {
	// 2*M/T with M=3 ("abc"), T=7
	assert.InDelta(t, 6.0/7.0, ratio("abcd", "abc"), 1e-9)
	assert.Equal(t, 0.0, ratio("abc", "xyz"))
}
