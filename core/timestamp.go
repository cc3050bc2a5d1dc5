package core

import "time"

const timestampLayout = "15:04:05.000"

// FormatTimestamp renders the local time of day with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(timestampLayout)
}
