package migrate

import (
	"fmt"
	"path"
	"strings"
)

// SplitURI splits a stored URI such as "public://images/a.jpg" into its
// scheme ("public") and key ("images/a.jpg").
func SplitURI(uri string) (scheme, key string, err error) {
	idx := strings.Index(uri, "://")
	if idx <= 0 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	scheme = strings.ToLower(uri[:idx])
	key = strings.TrimLeft(uri[idx+3:], "/")
	if key == "" {
		return "", "", fmt.Errorf("%w: %q has no path", ErrInvalidURI, uri)
	}
	return scheme, key, nil
}

// JoinURI builds a stored URI from a scheme and key.
func JoinURI(scheme, key string) string {
	return strings.ToLower(scheme) + "://" + strings.TrimLeft(key, "/")
}

// BaseName returns the last path element of a URI.
func BaseName(uri string) string {
	if _, key, err := SplitURI(uri); err == nil {
		uri = key
	}
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	return path.Base(uri)
}
