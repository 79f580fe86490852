package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var refPattern = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// Expand replaces ${VAR} and ${VAR:-default} references in s using lookup.
// Every unset variable without a default is reported in one error.
func Expand(s string, lookup func(string) (string, bool)) (string, error) {
	var missing []string
	seen := map[string]bool{}

	out := refPattern.ReplaceAllStringFunc(s, func(ref string) string {
		if ref == "$$" {
			return "$"
		}
		m := refPattern.FindStringSubmatch(ref)
		name, def := m[1], m[2]
		if v, ok := lookup(name); ok {
			return v
		}
		if def != "" {
			return strings.TrimPrefix(def, ":-")
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return ""
	})

	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return out, nil
}
