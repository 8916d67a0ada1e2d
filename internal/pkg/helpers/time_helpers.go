package helpers

import (
	"time"

	"github.com/jinzhu/now"
	"github.com/rs/zerolog/log"
)

// MonthLayout formats histogram buckets
const MonthLayout = "2006-01"

// ParseDuration parses a duration string, returns default duration on error.
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		log.Warn().Err(err).Str("durationStr", durationStr).Dur("defaultDuration", defaultDuration).Msg("Failed to parse duration string, using default")
		return defaultDuration
	}
	return duration
}

// MonthWindow returns the first instant of the month n-1 months before ref and
// the YYYY-MM keys of the n months ending with ref's month, oldest first.
func MonthWindow(ref time.Time, n int) (time.Time, []string) {
	if n < 1 {
		n = 1
	}
	current := now.With(ref.UTC()).BeginningOfMonth()
	start := current.AddDate(0, -(n - 1), 0)

	keys := make([]string, 0, n)
	for m := start; !m.After(current); m = m.AddDate(0, 1, 0) {
		keys = append(keys, m.Format(MonthLayout))
	}
	return start, keys
}
