// Package sysutil holds small process-level helpers shared by main and the
// config layer: global log level selection and environment value parsing.
package sysutil

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel applies a LOG_LEVEL-style string to the global zerolog level.
// "warning" is accepted as an alias for "warn"; blank or unknown values keep
// the service at info.
func SetLogLevel(lvl string) {
	s := strings.ToLower(strings.TrimSpace(lvl))
	if s == "warning" {
		s = "warn"
	}
	parsed, err := zerolog.ParseLevel(s)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// IsTruthy interprets a flag-style environment value. strconv's boolean
// spellings are honored first, then the common yes/on forms.
func IsTruthy(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	switch s {
	case "yes", "y", "on":
		return true
	}
	return false
}

// FirstNonEmpty returns the first value that is not blank after trimming,
// or "" when none qualify. The winning value is returned untrimmed.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
