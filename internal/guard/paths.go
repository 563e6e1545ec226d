package guard

import (
	"path/filepath"
	"strings"

	"github.com/repograph/repograph-go/internal/errors"
)

// SanitizePath rejects traversal and control-byte tricks in a
// user-supplied path. When base is non-empty the result is the cleaned
// path joined under base; absolute inputs are only accepted when they
// already live inside base.
func SanitizePath(path, base string) (string, error) {
	if path == "" {
		return "", errors.UserInputf("Empty path provided")
	}
	if strings.ContainsRune(path, '\x00') {
		return "", errors.UserInputf("Null byte in path")
	}
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return "", errors.UserInputf("Path traversal detected: '..' not allowed")
		}
	}

	cleaned := filepath.Clean(path)
	if base == "" {
		return cleaned, nil
	}

	base = filepath.Clean(base)
	if filepath.IsAbs(cleaned) {
		rel, err := filepath.Rel(base, cleaned)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", errors.UserInputf("Path %q escapes base directory", path)
		}
		return cleaned, nil
	}

	joined := filepath.Join(base, cleaned)
	rel, err := filepath.Rel(base, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.UserInputf("Path %q escapes base directory", path)
	}
	return joined, nil
}
