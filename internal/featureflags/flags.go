package featureflags

import (
	"os"
	"strings"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// FillEmptyDays reports whether daily stats should include zero-valued
// buckets for days with no readings instead of omitting them.
func FillEmptyDays() bool {
	return Enabled("FILL_EMPTY_DAYS")
}
