package repository

import (
	"fmt"
	"time"
)

// timeLayouts are the formats found in the database: plain dates, RFC3339
// timestamps written by the application, and SQLite's CURRENT_TIMESTAMP.
var timeLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseTime parses a date or timestamp string in any of the stored formats,
// normalized to UTC.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse time %q", str)
}
