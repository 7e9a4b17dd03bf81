// Package privacy provides privacy-focused utility functions for handling sensitive data
// such as URL anonymization and scrubbing of addresses and credentials from messages.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// URL pattern for finding URLs in text
	urlPattern = regexp.MustCompile(`\b(?:https?|smtps?)://\S+`)

	// Email addresses, local part is hashed so the same address stays correlatable
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Credentials in key=value or header form
	credentialPattern = regexp.MustCompile(`(?i)\b(api[_-]?key|fcm[_-]?api[_-]?key|password|secret|token|private[_-]?key|key)\s*[=:]\s*\S+`)

	// Bearer and FCM legacy Authorization header values
	authHeaderPattern = regexp.MustCompile(`(?i)\b(bearer|key=)\s*[A-Za-z0-9._\-]{8,}`)
)

// ScrubMessage removes or anonymizes sensitive information from log and result messages.
// URLs are replaced by a stable hash, email addresses keep only their domain,
// and inline credentials are redacted.
func ScrubMessage(message string) string {
	scrubbed := urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	scrubbed = emailPattern.ReplaceAllStringFunc(scrubbed, AnonymizeEmail)
	scrubbed = credentialPattern.ReplaceAllString(scrubbed, "$1=[REDACTED]")
	scrubbed = authHeaderPattern.ReplaceAllString(scrubbed, "$1 [REDACTED]")
	return scrubbed
}

// AnonymizeURL converts a URL to an anonymized form while preserving debugging value.
// Scheme, host category and port contribute to the hash; credentials, hostnames,
// paths and query strings never appear in the output.
func AnonymizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var normalizedParts []string
	if parsedURL.Scheme != "" {
		normalizedParts = append(normalizedParts, parsedURL.Scheme)
	}
	if host := parsedURL.Hostname(); host != "" {
		normalizedParts = append(normalizedParts, host)
	}
	if parsedURL.Port() != "" {
		normalizedParts = append(normalizedParts, "port-"+parsedURL.Port())
	}
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		normalizedParts = append(normalizedParts, parsedURL.Path)
	}

	hash := sha256.Sum256([]byte(strings.Join(normalizedParts, ":")))
	return fmt.Sprintf("url-%x", hash[:12])
}

// AnonymizeEmail hashes the local part of an address and keeps the domain.
// Input without an @ is returned unchanged.
func AnonymizeEmail(address string) string {
	local, domain, ok := strings.Cut(address, "@")
	if !ok || local == "" {
		return address
	}
	hash := sha256.Sum256([]byte(strings.ToLower(local)))
	return fmt.Sprintf("user-%x@%s", hash[:4], domain)
}

// RedactToken keeps a short prefix of a device token or key so log lines
// can be matched against client reports.
func RedactToken(token string) string {
	const keep = 6
	if len(token) <= keep {
		return strings.Repeat("*", len(token))
	}
	return token[:keep] + "..."
}
