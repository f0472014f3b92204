package domain

import (
	"slices"
	"time"
)

// Frequency is the base unit of a recurrence pattern.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// IsValid returns true if the frequency is a known value.
func (f Frequency) IsValid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	default:
		return false
	}
}

// Recurrence describes how a template task repeats.
// Fields are ordered to minimize memory padding.
type Recurrence struct {
	Until    time.Time      // End date (zero = no end date)
	Freq     Frequency      // Base frequency (required)
	Weekdays []time.Weekday // Weekly only: days the pattern fires on
	Interval int            // Every N units (>= 1)
	MonthDay int            // Monthly only: fixed day of month (0 = anchor's day)
	Count    int            // Max occurrences (0 = unlimited)
	LastDay  bool           // Monthly only: always the last day of the month
}

// IsValid returns true if the pattern is well formed.
func (r *Recurrence) IsValid() bool {
	if r == nil || !r.Freq.IsValid() || r.Interval < 1 {
		return false
	}
	if r.MonthDay < 0 || r.MonthDay > 31 {
		return false
	}
	for _, d := range r.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return false
		}
	}
	return true
}

// Ended reports whether the occurrence falling on next, which would be
// occurrence number generated+1, is past the pattern's end condition.
func (r *Recurrence) Ended(next time.Time, generated int) bool {
	if !r.Until.IsZero() && next.After(r.Until) {
		return true
	}
	if r.Count > 0 && generated >= r.Count {
		return true
	}
	return false
}

// Next computes the occurrence date following anchor. The computation is
// deterministic and calendar-correct: monthly and yearly steps that would
// overflow the target month clamp to its last valid day, so a pattern
// anchored on Jan 31 lands on Feb 28 (29 in leap years), and a yearly
// pattern anchored on Feb 29 lands on Feb 28 in non-leap target years.
func (r *Recurrence) Next(anchor time.Time) time.Time {
	switch r.Freq {
	case FreqDaily:
		return anchor.AddDate(0, 0, r.Interval)
	case FreqWeekly:
		return r.nextWeekly(anchor)
	case FreqMonthly:
		return r.nextMonthly(anchor)
	case FreqYearly:
		return addMonthsClamped(anchor, 12*r.Interval, anchor.Day(), false)
	default:
		return anchor
	}
}

// nextWeekly advances to the next enabled weekday. Weeks start on Monday;
// the interval skips whole weeks relative to the anchor's week.
func (r *Recurrence) nextWeekly(anchor time.Time) time.Time {
	if len(r.Weekdays) == 0 {
		return anchor.AddDate(0, 0, 7*r.Interval)
	}
	anchorWeek := startOfWeek(anchor)
	// The next occurrence is at most interval+1 weeks out.
	limit := 7 * (r.Interval + 1)
	for i := 1; i <= limit; i++ {
		d := anchor.AddDate(0, 0, i)
		weeks := int(startOfWeek(d).Sub(anchorWeek).Hours() / 24 / 7)
		if weeks%r.Interval != 0 {
			continue
		}
		if slices.Contains(r.Weekdays, d.Weekday()) {
			return d
		}
	}
	return anchor.AddDate(0, 0, 7*r.Interval)
}

func (r *Recurrence) nextMonthly(anchor time.Time) time.Time {
	day := anchor.Day()
	if r.MonthDay > 0 {
		day = r.MonthDay
	}
	return addMonthsClamped(anchor, r.Interval, day, r.LastDay)
}

// addMonthsClamped adds months to t targeting the given day of month,
// clamping to the target month's length instead of letting time.AddDate
// spill into the following month.
func addMonthsClamped(t time.Time, months, day int, lastDay bool) time.Time {
	y, m, _ := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(months), 1, hh, mm, ss, 0, t.Location())
	dim := daysInMonth(first.Year(), first.Month())
	if lastDay || day > dim {
		day = dim
	}
	return time.Date(first.Year(), first.Month(), day, hh, mm, ss, 0, t.Location())
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// startOfWeek returns midnight of the Monday of t's week.
func startOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}
