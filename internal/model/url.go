package model

import (
	"net/url"
	"strings"
)

// NormalizePolicy controls how URLs are rewritten before they are compared
// for deduplication.
type NormalizePolicy string

const (
	// NormalizeNone compares URLs as exact strings after resolution.
	// Two URLs differing only in fragment are distinct.
	NormalizeNone NormalizePolicy = "none"

	// NormalizeFragment drops the fragment (#anchor) before comparing.
	NormalizeFragment NormalizePolicy = "fragment"

	// NormalizeCanonical drops the fragment, lowercases scheme and host,
	// turns an empty path into "/" and sorts query parameters.
	NormalizeCanonical NormalizePolicy = "canonical"
)

// ParseNormalizePolicy converts a policy name into a NormalizePolicy.
// An empty name selects NormalizeNone.
func ParseNormalizePolicy(name string) (NormalizePolicy, error) {
	switch NormalizePolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", NormalizeNone:
		return NormalizeNone, nil
	case NormalizeFragment:
		return NormalizeFragment, nil
	case NormalizeCanonical:
		return NormalizeCanonical, nil
	default:
		return "", ErrUnknownNormalizePolicy
	}
}

// Normalize returns the dedup key of rawURL under the policy. The key is only
// compared, never fetched. Unparseable input is returned unchanged.
func (p NormalizePolicy) Normalize(rawURL string) string {
	if p == NormalizeNone || p == "" {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawFragment = ""

	if p == NormalizeCanonical {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		if u.Path == "" && u.Opaque == "" {
			u.Path = "/"
		}
		if u.RawQuery != "" {
			// Encode sorts by key.
			u.RawQuery = u.Query().Encode()
		}
	}

	return u.String()
}

// Target returns the URL that is requested for rawURL. Policies other than
// none cut the fragment, which never reaches the server. The rest of the URL
// is kept byte for byte.
func (p NormalizePolicy) Target(rawURL string) string {
	if p == NormalizeNone || p == "" {
		return rawURL
	}
	target, _, _ := strings.Cut(rawURL, "#")
	return target
}
