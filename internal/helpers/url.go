package helpers

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

var trackingQueryParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"fbclid":       {},
	"msclkid":      {},
}

// CanonicalURL normalises a link for duplicate detection. Scheme and host are
// lowercased, default ports and fragments dropped, the path cleaned, and
// tracking parameters removed. url.Values.Encode sorts what remains.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", errors.New("url missing host")
	}
	if port := u.Port(); port != "" && !(u.Scheme == "http" && port == "80") && !(u.Scheme == "https" && port == "443") {
		host += ":" + port
	}
	u.Host = host

	p := path.Clean("/" + u.Path)
	if p != "/" && strings.HasSuffix(u.Path, "/") {
		p += "/"
	}
	u.Path = p
	u.RawPath = ""
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if _, drop := trackingQueryParams[strings.ToLower(key)]; drop {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
