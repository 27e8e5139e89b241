package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Site is a remote content destination. A virtual site has no remote
// counterpart and exists only as a local organizational bucket.
type Site struct {
	ID          string
	URL         string
	Name        string
	IsVirtual   bool
	Credentials *Credentials
	Stats       SiteStats
}

// Credentials authenticate every request against one remote site.
type Credentials struct {
	Username    string
	AppPassword string
}

// SiteStats is the last-known summary reported by the remote API.
type SiteStats struct {
	Posts    int
	Pages    int
	Products int
}

// NormalizeOrigin reduces a site URL to its canonical origin form
// (lowercased scheme+host, default ports stripped, no path). The result
// is the durable Site.ID and the join key for matching post links back
// to their site.
func NormalizeOrigin(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("empty site url")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse site url %s: %w", raw, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("site url %s has no host", raw)
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Host)
	switch {
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	}

	return scheme + "://" + host, nil
}
