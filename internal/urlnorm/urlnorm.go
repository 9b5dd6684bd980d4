// Package urlnorm rewrites stored attachment links so they keep loading
// after the API moves to a different origin.
package urlnorm

import (
	"net"
	"net/url"
	"path"
	"strings"
)

// UploadsPrefix is the path under which the API serves uploaded files.
const UploadsPrefix = "/uploads/"

// Normalize rewrites rawURL against currentOrigin:
//   - an absolute URL on a loopback host whose origin differs from
//     currentOrigin becomes currentOrigin + UploadsPrefix + last path segment;
//   - a path starting with "/" is prefixed with currentOrigin;
//   - anything else is returned unchanged.
//
// Normalize never fails and is idempotent for a fixed currentOrigin.
func Normalize(rawURL, currentOrigin string) string {
	base := strings.TrimRight(currentOrigin, "/")
	if base == "" || rawURL == "" {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return prefixRelative(rawURL, base)
	}

	if u.Scheme != "" && u.Host != "" {
		if !isLoopback(u.Hostname()) || sameOrigin(u, base) {
			return rawURL
		}
		name := path.Base(u.EscapedPath())
		if name == "." || name == "/" {
			return rawURL
		}
		return base + UploadsPrefix + name
	}

	return prefixRelative(rawURL, base)
}

// NormalizeAll applies Normalize to every entry of urls, returning a new
// slice.
func NormalizeAll(urls []string, currentOrigin string) []string {
	if urls == nil {
		return nil
	}
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = Normalize(u, currentOrigin)
	}
	return out
}

// prefixRelative applies the leading-slash rule. Protocol-relative
// references ("//host/x") are left alone.
func prefixRelative(rawURL, base string) string {
	if strings.HasPrefix(rawURL, "/") && !strings.HasPrefix(rawURL, "//") {
		return base + rawURL
	}
	return rawURL
}

// isLoopback reports whether host is a development placeholder address.
func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func sameOrigin(u *url.URL, base string) bool {
	b, err := url.Parse(base)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, b.Scheme) && strings.EqualFold(u.Host, b.Host)
}
