// Package dates generates the timezone-safe calendar-day sequences every other
// component iterates. All dates are normalized to midnight UTC; mixing local
// calendars here would introduce off-by-one drift in every consumer.
package dates

import "time"

// Format is the canonical date layout used for map keys, query parameters and
// database columns throughout the application.
const Format = "2006-01-02"

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Key returns the canonical YYYY-MM-DD representation of t in UTC.
func Key(t time.Time) string {
	return t.UTC().Format(Format)
}

// Parse parses a YYYY-MM-DD string into a UTC midnight time.
func Parse(str string) (time.Time, error) {
	t, err := time.Parse(Format, str)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Range returns the ascending inclusive sequence of calendar days from `from`
// to `to`, both truncated to UTC midnight. Returns an empty slice when from is
// after to.
func Range(from, to time.Time) []time.Time {
	from, to = Day(from), Day(to)
	if from.After(to) {
		return []time.Time{}
	}
	days := make([]time.Time, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Min returns the earlier of a and b.
func Min(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
