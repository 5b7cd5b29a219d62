package utils

import "time"

// CalendarDateLayout is the wire format of signup dates.
const CalendarDateLayout = "2006-01-02"

// ParseCalendarDate parses a YYYY-MM-DD date as midnight UTC.
func ParseCalendarDate(s string) (time.Time, error) {
	return time.ParseInLocation(CalendarDateLayout, s, time.UTC)
}

// FormatLocalDateTime renders t in UTC as an ISO-8601 local date-time:
// minutes always, seconds only when the seconds or fraction are non-zero,
// and the fraction in the shortest group of three digits (ms, µs or ns).
//
//	2024-01-02T10:00
//	2024-01-02T10:00:05
//	2024-01-02T10:00:05.120
func FormatLocalDateTime(t time.Time) string {
	t = t.UTC()
	out := t.Format("2006-01-02T15:04")
	sec, nanos := t.Second(), t.Nanosecond()
	if sec == 0 && nanos == 0 {
		return out
	}
	out += t.Format(":05")
	switch {
	case nanos == 0:
	case nanos%1_000_000 == 0:
		out += t.Format(".000")
	case nanos%1_000 == 0:
		out += t.Format(".000000")
	default:
		out += t.Format(".000000000")
	}
	return out
}
