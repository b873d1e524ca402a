package tunnelpool

import (
	"fmt"
	"net/url"
	"strings"
)

// parseURL performs the syntactic check the spec delegates to an
// external URL parser: non-empty, no embedded whitespace, within
// MaxURLLength, and structurally a valid URL with a scheme and host.
//
// net/url.Parse is used directly rather than through a third-party
// library: none of the examined examples import a URL-parsing
// dependency, and the standard library's parser already implements
// RFC 3986 syntax checking, which is all this validation needs.
func parseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("tunnel url is empty")
	}
	if len(raw) > MaxURLLength {
		return fmt.Errorf("tunnel url exceeds %d characters", MaxURLLength)
	}
	if strings.ContainsAny(raw, " \t\r\n") {
		return fmt.Errorf("tunnel url %q contains whitespace", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("tunnel url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("tunnel url %q missing scheme or host", raw)
	}
	return nil
}
