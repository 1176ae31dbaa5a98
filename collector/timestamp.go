package collector

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 text form written to storage. Every stored
// timestamp is UTC with microsecond precision, so string order is time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// MinYear and MaxYear bound the UTC years TimestampLayout can represent.
const (
	MinYear = 0
	MaxYear = 9999
)

// Accepted input forms. Fractional seconds are optional for every layout that
// carries seconds; layouts without a zone are read in the local zone.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 date-time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 date-time", s)
}

// FormatTimestamp renders t in TimestampLayout. Sub-microsecond digits are
// truncated.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(TimestampLayout)
}
