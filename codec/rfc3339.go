// Package codec holds scalar wire conversions shared by the decoder and the
// application layer.
package codec

import (
	"time"
)

// ParseRFC3339 parses a JTD timestamp. RFC3339Nano is tried first (trailing
// zeros optional), then plain RFC3339.
func ParseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

// FormatRFC3339 renders t in canonical form: UTC, RFC3339Nano with trailing
// zeros trimmed.
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// CanonicalRFC3339 re-renders a timestamp string in canonical form.
func CanonicalRFC3339(s string) (string, error) {
	t, err := ParseRFC3339(s)
	if err != nil {
		return "", err
	}
	return FormatRFC3339(t), nil
}
