package clean

import (
	"net/url"
	"strings"
)

// Website canonicalizes a raw website value: trims, defaults the https
// scheme, lower-cases the host, drops fragments and tracking params
// (utm_*, fbclid, gclid), and strips the trailing slash on bare-path URLs.
// Unparseable or hostless input returns ("", false).
func Website(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		lk := strings.ToLower(key)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	if u.Path == "/" && u.RawQuery == "" {
		u.Path = ""
	}

	cleaned := u.String()
	return cleaned, cleaned != raw
}

// Domain extracts the bare host (without "www.") from a website value.
// Returns "" when the value does not parse.
func Domain(raw string) string {
	site, _ := Website(raw)
	if site == "" {
		return ""
	}
	u, err := url.Parse(site)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}
