package gate

import (
	"path/filepath"
	"strings"

	"github.com/nebula-ui/nebula-upload/internal/models"
)

// NameFilter rejects files by name. Exclude patterns are checked first and
// take precedence; when include is non-empty a file must match one of its
// patterns. Patterns use filepath.Match syntax and are matched against the
// base name, so "*.log" also catches "logs/app.log".
func NameFilter(include, exclude []string) Check {
	return func(f *models.File) Decision {
		return Allow(matchesNames(f.Name, include, exclude))
	}
}

func matchesNames(name string, include, exclude []string) bool {
	base := filepath.Base(name)
	for _, pattern := range exclude {
		if matchName(pattern, name, base) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if matchName(pattern, name, base) {
			return true
		}
	}
	return false
}

func matchName(pattern, name, base string) bool {
	if matched, _ := filepath.Match(pattern, name); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, base)
	return matched
}

// ParsePatternList parses a comma-separated list of patterns into a slice.
// Example: "*.dat,*.txt" -> []string{"*.dat", "*.txt"}
func ParsePatternList(patternStr string) []string {
	if patternStr == "" {
		return nil
	}
	parts := strings.Split(patternStr, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}
