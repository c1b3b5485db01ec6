package config

import (
	"errors"
	"net/url"
	"strings"
)

// SanitizeTrustedDomain turns a configured origin such as "https://Buddy.example/"
// into the lowercase host[:port] the origin checks compare against.
func SanitizeTrustedDomain(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, scheme := range []string{"http://", "https://"} {
		s = strings.TrimPrefix(s, scheme)
	}
	s = strings.TrimSuffix(s, "/")

	switch {
	case s == "":
		return "", errors.New("domain cannot be empty")
	case strings.ContainsAny(s, " \t\r\n"):
		return "", errors.New("domain cannot contain whitespace")
	case strings.Contains(s, "*"):
		return "", errors.New("wildcards are not allowed in trusted origins")
	}

	u, err := url.Parse("http://" + s)
	if err != nil {
		return "", errors.New("invalid domain format")
	}
	if u.Host == "" || u.Path != "" || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", errors.New("domain must not include path, query, or fragment")
	}
	return u.Host, nil
}

// CORSOrigins expands sanitized trusted domains into the http and https origins
// the landing page may be embedded from.
func CORSOrigins(domains []string) []string {
	origins := make([]string, 0, len(domains)*2)
	for _, d := range domains {
		origins = append(origins, "https://"+d, "http://"+d)
	}
	return origins
}
