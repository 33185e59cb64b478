package live

import (
	"errors"
	"strings"
)

var (
	ErrInvalidPath = errors.New("invalid path")
	ErrForbidden   = errors.New("path not allowed")
)

// Access decides which paths a user may stream.
type Access struct {
	prefixes []string
}

func NewAccess(prefixes []string) *Access {
	return &Access{prefixes: prefixes}
}

// Check cleans path and reports whether uid may read it.
func (a *Access) Check(uid, path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrInvalidPath
		}
	}
	if uid == "" {
		return "", ErrForbidden
	}

	for _, p := range a.prefixes {
		prefix := strings.Trim(strings.ReplaceAll(p, "{uid}", uid), "/")
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return path, nil
		}
	}
	return "", ErrForbidden
}
