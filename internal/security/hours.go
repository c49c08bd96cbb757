package security

import "time"

// Hours is a minimal trading-hours calendar for a single exchange: a daily
// open/close time-of-day (in the exchange's local zone) observed Monday
// through Friday, plus an explicit holiday set. Spec §4.8 requires
// trading-day counting to "skip weekends and holidays per the security's
// exchange-hours calendar" and §4.2 check 10 requires a precise
// next-market-close computation.
type Hours struct {
	Location *time.Location
	Open     time.Duration // time-of-day offset from midnight
	Close    time.Duration
	Holidays map[string]struct{} // "2006-01-02" in Location
}

// NewHours builds a calendar with the given local open/close time-of-day.
func NewHours(loc *time.Location, open, close time.Duration, holidays ...string) Hours {
	h := Hours{Location: loc, Open: open, Close: close, Holidays: make(map[string]struct{}, len(holidays))}
	for _, d := range holidays {
		h.Holidays[d] = struct{}{}
	}
	return h
}

func (h Hours) loc() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// IsTradingDay reports whether t's calendar date is a weekday and not a
// holiday.
func (h Hours) IsTradingDay(t time.Time) bool {
	t = t.In(h.loc())
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	_, holiday := h.Holidays[t.Format("2006-01-02")]
	return !holiday
}

// IsOpen reports whether the exchange is open for regular trading at t.
func (h Hours) IsOpen(t time.Time) bool {
	if !h.IsTradingDay(t) {
		return false
	}
	local := t.In(h.loc())
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.loc())
	offset := local.Sub(midnight)
	return offset >= h.Open && offset < h.Close
}

// NextClose returns the next market-close instant at or after t. If t
// falls during a session, that session's close is returned; otherwise the
// next trading day's close is returned.
func (h Hours) NextClose(t time.Time) time.Time {
	local := t.In(h.loc())
	for day := 0; day < 14; day++ {
		candidate := local.AddDate(0, 0, day)
		if !h.IsTradingDay(candidate) {
			continue
		}
		midnight := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), 0, 0, 0, 0, h.loc())
		close := midnight.Add(h.Close)
		if !close.Before(local) {
			return close
		}
	}
	// Exhausted the search window (pathological all-holiday calendar);
	// fall back to t plus a day so callers never block forever.
	return local.AddDate(0, 0, 1)
}

// AddTradingDays returns the date n trading days after t, skipping
// weekends and holidays, settling at time-of-day tod.
func (h Hours) AddTradingDays(t time.Time, n int, tod time.Duration) time.Time {
	local := t.In(h.loc())
	remaining := n
	day := local
	for remaining > 0 {
		day = day.AddDate(0, 0, 1)
		if h.IsTradingDay(day) {
			remaining--
		}
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, h.loc())
	return midnight.Add(tod)
}
