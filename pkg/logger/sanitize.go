package logger

import (
	"strings"
)

// SanitizedEmail masks an email address for logging ("a***@*****.com").
func SanitizedEmail(email string) string {
	username, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	if len(username) > 1 {
		username = username[:1] + strings.Repeat("*", len(username)-1)
	}

	labels := strings.Split(domain, ".")
	if len(labels) > 1 {
		for i := 0; i < len(labels)-1; i++ {
			labels[i] = strings.Repeat("*", len(labels[i]))
		}
		domain = strings.Join(labels, ".")
	}

	return username + "@" + domain
}

var sensitiveParams = []string{"password", "token", "secret", "email", "signature", "auth"}

// SanitizeQueryString reports whether the raw query mentions a sensitive
// parameter, in which case the whole query should be redacted.
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}

// secretSegments are route prefixes whose next path segment carries a
// single-use token or an email address.
var secretSegments = []string{
	"/auth/verify/",
	"/auth/reset-password/",
	"/api/users/by-email/",
}

// RedactPath replaces tokens and addresses embedded in the path.
func RedactPath(path string) string {
	for _, prefix := range secretSegments {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || rest == "" {
			continue
		}
		if _, tail, found := strings.Cut(rest, "/"); found {
			return prefix + "[REDACTED]/" + tail
		}
		return prefix + "[REDACTED]"
	}
	return path
}
