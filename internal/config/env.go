package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)

// ExpandEnv replaces environment references in input:
//   - ${VAR}            value of VAR, empty when unset
//   - ${VAR:-default}   value of VAR, or default when unset or empty
//   - ${VAR:?message}   value of VAR, or an error naming VAR when unset or empty
func ExpandEnv(input string) (string, error) {
	var missing []string

	out := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envPattern.FindStringSubmatch(match)
		name, modifier := sub[1], sub[2]
		value, ok := os.LookupEnv(name)

		switch {
		case strings.HasPrefix(modifier, ":-"):
			if !ok || value == "" {
				return modifier[2:]
			}
		case strings.HasPrefix(modifier, ":?"):
			if !ok || value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, modifier[2:]))
				return match
			}
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: missing environment variables: %s",
			ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return out, nil
}
