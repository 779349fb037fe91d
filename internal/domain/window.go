package domain

import "time"

// Window is a closed [Start, End] interval used to scope usage counts.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, both ends inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// DailyWindow returns the daily quota window for the request timestamp t:
// midnight of t's calendar day through that midnight + 24h - 1s.
func DailyWindow(t time.Time) Window {
	start := midnight(t)
	return Window{
		Start: start,
		End:   start.Add(24*time.Hour - time.Second),
	}
}

// WeeklyWindow returns the trailing 7-calendar-day window for the request
// timestamp t: midnight of (t - 7 days) through end-of-day of t at
// microsecond precision. The window is deliberately not ISO-week aligned,
// and its end bound is finer-grained than the daily window's. Both
// boundaries are a compatibility contract.
func WeeklyWindow(t time.Time) Window {
	return Window{
		Start: midnight(t.AddDate(0, 0, -7)),
		End:   midnight(t).Add(24*time.Hour - time.Microsecond),
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
