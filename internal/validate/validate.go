// Package validate holds input checks applied before values reach the
// backend or the local store.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
)

// remoteNameRe matches valid remote names: start with a letter or digit,
// followed by letters, digits, dots, hyphens or underscores.
var remoteNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// MaxRemoteNameLen is the maximum length accepted for remote names.
const MaxRemoteNameLen = 128

// RemoteName reports whether s is a usable remote name. Names containing
// a colon would be ambiguous in remote:path strings and are rejected by
// the pattern.
func RemoteName(s string) bool {
	return len(s) > 0 && len(s) <= MaxRemoteNameLen && remoteNameRe.MatchString(s)
}

// HTTPURL ensures the URL uses http or https scheme and has a non-empty
// host, so file:// and similar schemes never reach the HTTP client.
func HTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		// OK
	case "":
		return fmt.Errorf("URL missing scheme: %s", rawURL)
	default:
		return fmt.Errorf("URL scheme %q not allowed (only http/https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL missing host: %s", rawURL)
	}
	return nil
}

// EngineURL accepts the schemes usable for the engine control channel.
// Plain http/https is allowed too; the bridge rewrites them to ws/wss.
func EngineURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		// OK
	case "":
		return fmt.Errorf("URL missing scheme: %s", rawURL)
	default:
		return fmt.Errorf("URL scheme %q not allowed (only http/https/ws/wss)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL missing host: %s", rawURL)
	}
	return nil
}
