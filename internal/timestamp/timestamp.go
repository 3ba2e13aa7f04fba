package timestamp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// ErrMalformedTimestamp is returned when a value cannot be read as a civil time.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

const layout = "20060102150405"

// #region from-conf
// FromConf converts a configuration timestamp into a UTC time. Strings may use
// any separators: non-digits are stripped, at least 8 digits (a date) are
// required, and the remainder is right-padded with zeros to YYYYMMDDHHMMSS.
// Digits beyond seconds are ignored.
func FromConf(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("%w: nil time", ErrMalformedTimestamp)
		}
		return t.UTC(), nil
	case string:
		return parseString(t)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrMalformedTimestamp, v)
	}
}

func parseString(s string) (time.Time, error) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 8 {
		return time.Time{}, fmt.Errorf("%w: %q has fewer than 8 digits", ErrMalformedTimestamp, s)
	}
	if len(digits) < 14 {
		digits += strings.Repeat("0", 14-len(digits))
	}
	t, err := time.ParseInLocation(layout, digits[:14], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedTimestamp, s, err)
	}
	return t, nil
}

// #endregion from-conf

// #region duration
var isoDuration = regexp.MustCompile(
	`^P(\d+(\.\d+)?Y)?(\d+(\.\d+)?M)?(\d+(\.\d+)?W)?(\d+(\.\d+)?D)?` +
		`(T(\d+(\.\d+)?H)?(\d+(\.\d+)?M)?(\d+(\.\d+)?S)?)?$`)

// ParseDuration reads a positive ISO-8601 duration such as PT6H or P1DT3H.
// Years and months are rejected as ambiguous. A Go duration string such as
// "6h" is accepted as a fallback.
func ParseDuration(s string) (time.Duration, error) {
	if !strings.HasPrefix(s, "P") {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", s, err)
		}
		return d, nil
	}

	if s == "P" || strings.HasSuffix(s, "T") || !isoDuration.MatchString(s) {
		return 0, fmt.Errorf("parse duration %q: not an ISO-8601 duration", s)
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if d.Years != 0 || d.Months != 0 {
		return 0, fmt.Errorf("parse duration %q: years and months have no fixed length", s)
	}
	return d.ToTimeDuration(), nil
}

// #endregion duration
