// Package validation checks names that arrive from the network before they
// touch the filesystem.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilename rejects names that are not a single path element: empty,
// "." or "..", or containing a separator or a null byte. Names like
// "data..v2.csv" are fine.
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte: %q", filename)
	}
	if strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("filename cannot be %q", filename)
	}
	return nil
}

// JoinInDirectory joins name onto baseDir after validating it, and returns an
// error if the result would land outside baseDir.
func JoinInDirectory(baseDir, name string) (string, error) {
	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	base := filepath.Clean(baseDir)
	joined := filepath.Join(base, name)

	rel, err := filepath.Rel(base, joined)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s (base: %s)", name, baseDir)
	}
	return joined, nil
}
