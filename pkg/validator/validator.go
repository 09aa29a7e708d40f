package validator

import (
	"net/url"
	"strings"

	"mediagrab/internal/model"
)

// platforms maps a source domain to the label reported with downloads.
var platforms = []struct {
	domain string
	label  string
}{
	{"tiktok.com", "TikTok"},
	{"youtube.com", "YouTube"},
	{"youtu.be", "YouTube"},
	{"twitter.com", "Twitter"},
	{"x.com", "Twitter"},
	{"instagram.com", "Instagram"},
	{"facebook.com", "Facebook"},
	{"fb.watch", "Facebook"},
	{"vimeo.com", "Vimeo"},
}

// DetectPlatform returns the platform label for a URL whose host belongs to
// one of allowedDomains. Hosts are compared by exact match or dot-suffix, so
// "netflix.com" never matches "x.com".
func DetectPlatform(rawURL string, allowedDomains []string) (string, error) {
	host, ok := hostOf(rawURL)
	if !ok {
		return "", model.ErrUnsupportedSource
	}

	for _, domain := range allowedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" || !matchesDomain(host, domain) {
			continue
		}
		for _, p := range platforms {
			if matchesDomain(host, p.domain) {
				return p.label, nil
			}
		}
		return domain, nil
	}

	return "", model.ErrUnsupportedSource
}

func hostOf(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), true
}

func matchesDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// ValidateFormatID reports whether a format id is safe to hand to the
// downloader. Empty is valid and means "let the orchestrator choose".
func ValidateFormatID(formatID string) bool {
	if len(formatID) > 50 {
		return false
	}
	for _, r := range formatID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_+/.[]<>=!", r):
		default:
			return false
		}
	}
	return true
}
