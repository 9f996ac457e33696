// Package platform dispatches database URLs to backend implementations and exposes them behind
// a single Database capability.
package platform

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Kind is the closed set of backends a URL can name
type Kind int

const (
	Postgres Kind = iota
	Sqlite
	Oracle
	MySQL
)

// String returns the canonical scheme of the kind
func (k Kind) String() string {
	switch k {
	case Postgres:
		return "postgres"
	case Sqlite:
		return "sqlite"
	case Oracle:
		return "oracle"
	case MySQL:
		return "mysql"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Implemented reports whether the backend can actually be connected to
func (k Kind) Implemented() bool {
	return k == Postgres || k == Sqlite
}

var schemes = map[string]Kind{
	"postgres":   Postgres,
	"postgresql": Postgres,
	"sqlite":     Sqlite,
	"sqlite3":    Sqlite,
	"oracle":     Oracle,
	"mysql":      MySQL,
}

// ParseKind returns the backend named by the scheme of rawURL
func ParseKind(rawURL string) (Kind, error) {
	scheme, _, ok := strings.Cut(rawURL, ":")
	if !ok || scheme == "" {
		return 0, fmt.Errorf("%w: missing scheme in %q", ErrUnsupportedURL, Redact(rawURL))
	}
	kind, ok := schemes[strings.ToLower(scheme)]
	if !ok {
		return 0, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, scheme)
	}
	return kind, nil
}

// redactedPassword replaces every password in a redacted URL
const redactedPassword = "xxxxx"

// passwordParam matches a password query parameter with its value
var passwordParam = regexp.MustCompile(`(?i)([?&]password=)[^&#]*`)

// Redact hides the password of a URL, in the userinfo or in a password query parameter, so
// it can be logged. URLs that do not parse are redacted textually.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return redactQuery(redactUserinfo(rawURL))
	}

	redacted := rawURL
	if _, has := u.User.Password(); has {
		redacted = u.Redacted()
	}
	return redactQuery(redacted)
}

// redactQuery masks password query parameters in place, keeping the order of the others
func redactQuery(rawURL string) string {
	return passwordParam.ReplaceAllString(rawURL, "${1}"+redactedPassword)
}

func redactUserinfo(rawURL string) string {
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return rawURL
	}
	authority, path, hasPath := strings.Cut(rest, "/")
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return rawURL
	}
	user, _, hasPassword := strings.Cut(authority[:at], ":")
	if !hasPassword {
		return rawURL
	}
	redacted := scheme + "://" + user + ":" + redactedPassword + authority[at:]
	if hasPath {
		redacted += "/" + path
	}
	return redacted
}
