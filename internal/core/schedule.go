package core

import "time"

// Schedule arithmetic for recurring series. Two distinct questions are
// answered here:
//
//   - NextDueDate: catch-up for bills. Starting from the series anchor, what
//     is the first occurrence strictly after a reference date?
//   - LatestDueOccurrence: projection for recurring transaction templates.
//     Which already-elapsed occurrence (if any) should be materialized?
//
// Month and year steps use calendar arithmetic with the day clamped to the
// last valid day of the target month, so a Jan-31 monthly series runs
// Feb-29/28, Mar-31, Apr-30 and never drifts off its anchor day. Callers are
// expected to have validated the frequency at the boundary; an unknown value
// falls through to the daily step.

// AddPeriod advances d by exactly one period of the given frequency.
func AddPeriod(d time.Time, freq Frequency) time.Time {
	switch freq {
	case Weekly:
		return d.AddDate(0, 0, 7)
	case Monthly:
		return addMonthsClamped(d, d.Day(), 1)
	case Yearly:
		return addYearsClamped(d, d.Day(), 1)
	default:
		return d.AddDate(0, 0, 1)
	}
}

// NextDueDate returns the first occurrence of the series (anchor, freq) that
// is strictly after ref. An anchor in the future is returned unchanged.
// Monthly and yearly steps are always taken from the anchor, not from the
// previous (possibly clamped) occurrence, so the day-of-month cadence holds.
func NextDueDate(anchor time.Time, freq Frequency, ref time.Time) time.Time {
	anchor = DayOf(anchor)
	ref = DayOf(ref)
	if anchor.After(ref) {
		return anchor
	}

	switch freq {
	case Daily, Weekly:
		per := periodDays(freq)
		elapsed := daysBetween(anchor, ref)
		return anchor.AddDate(0, 0, (elapsed/per+1)*per)
	case Yearly:
		for n := 1; ; n++ {
			if next := addYearsClamped(anchor, anchor.Day(), n); next.After(ref) {
				return next
			}
		}
	default: // Monthly
		for n := 1; ; n++ {
			if next := addMonthsClamped(anchor, anchor.Day(), n); next.After(ref) {
				return next
			}
		}
	}
}

// LatestDueOccurrence returns the most recent occurrence of the series that
// lies strictly after its start and strictly before ref. The start itself is
// never returned: a recurring template is a ledger row dated at its first
// occurrence, so occurrence zero already exists. An occurrence dated exactly
// ref is left to a later run. ok is false when no occurrence qualifies.
func LatestDueOccurrence(start time.Time, freq Frequency, ref time.Time) (time.Time, bool) {
	start = DayOf(start)
	ref = DayOf(ref)
	if !start.Before(ref) {
		return time.Time{}, false
	}

	switch freq {
	case Daily, Weekly:
		per := periodDays(freq)
		n := (daysBetween(start, ref) - 1) / per
		if n < 1 {
			return time.Time{}, false
		}
		return start.AddDate(0, 0, n*per), true
	case Yearly:
		return latestByStep(start, ref, func(n int) time.Time {
			return addYearsClamped(start, start.Day(), n)
		})
	default: // Monthly
		return latestByStep(start, ref, func(n int) time.Time {
			return addMonthsClamped(start, start.Day(), n)
		})
	}
}

func latestByStep(start, ref time.Time, step func(n int) time.Time) (time.Time, bool) {
	var last time.Time
	for n := 1; ; n++ {
		candidate := step(n)
		if !candidate.Before(ref) {
			break
		}
		last = candidate
	}
	if last.IsZero() {
		return time.Time{}, false
	}
	return last, true
}

func periodDays(freq Frequency) int {
	if freq == Weekly {
		return 7
	}
	return 1
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

// addMonthsClamped adds n calendar months keeping anchorDay, clamped to the
// last valid day of the target month.
func addMonthsClamped(d time.Time, anchorDay, n int) time.Time {
	year, month := d.Year(), int(d.Month())+n
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	return clampedDate(year, month, anchorDay)
}

func addYearsClamped(d time.Time, anchorDay, n int) time.Time {
	return clampedDate(d.Year()+n, int(d.Month()), anchorDay)
}

func clampedDate(year, month, day int) time.Time {
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
