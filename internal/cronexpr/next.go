package cronexpr

import (
	"time"
)

// Next returns the earliest instant at or after ref, truncated to minute
// granularity, at which the job is due. A zero ref means "now".
//
// The search runs four advancement passes in a fixed order — minute, hour,
// day, month — each carrying into the next larger unit when the remainder of
// the current unit has no matching value. Passes never loop back: a carry
// from the day pass into a new month is not re-checked by the day pass after
// the month pass moves the instant again. Day-of-month and day-of-week are
// computed as two independent candidates and combined with standard cron OR
// precedence.
func (j *Job) Next(ref time.Time) (time.Time, error) {
	if ref.IsZero() {
		ref = time.Now()
	}
	if err := j.checkSets(); err != nil {
		return time.Time{}, err
	}

	t := time.Date(ref.Year(), ref.Month(), ref.Day(), ref.Hour(), ref.Minute(), 0, 0, ref.Location())
	t = j.nextMinute(t)
	t = j.nextHour(t)
	t = j.nextDay(t)
	t = j.nextMonth(t)
	return t, nil
}

// scanFrom returns the first member of set within [from, max). The bound
// matters because explicit out-of-range values pass through the parser: a
// minute field of "75" holds 75 in its set, but the remaining-minutes scan
// must still stop at 59.
func scanFrom(set []int, from, max int) (int, bool) {
	for _, v := range set {
		if v >= from && v < max {
			return v, true
		}
	}
	return 0, false
}

func (j *Job) nextMinute(t time.Time) time.Time {
	if m, ok := scanFrom(j.Minute.Values, t.Minute(), maxMinute); ok {
		if m != t.Minute() {
			t = setMinute(t, m)
		}
		return t
	}
	// Nothing left this hour: wrap to the first minute of the next hour.
	t = t.Add(time.Hour)
	return setMinute(t, j.Minute.Values[0])
}

func (j *Job) nextHour(t time.Time) time.Time {
	if h, ok := scanFrom(j.Hour.Values, t.Hour(), maxHour); ok {
		if h != t.Hour() {
			t = setHour(t, h)
		}
		return t
	}
	t = t.AddDate(0, 0, 1)
	return setHour(t, j.Hour.Values[0])
}

// nextDay advances to the next day satisfying the day-of-month OR
// day-of-week constraint. The two candidates are computed independently;
// which one wins follows standard cron precedence: a field left at "*" is
// unrestricted, and when both are restricted the chronologically earlier
// candidate is used.
func (j *Job) nextDay(t time.Time) time.Time {
	dom := t
	if d, ok := scanFrom(j.Dom.Values, t.Day(), maxDom); ok {
		if d != t.Day() {
			dom = setDay(t, d)
		}
	} else {
		// No matching day left this month: land on the first scheduled
		// day-of-month of the next month. The offset is not re-checked
		// against the month set; the month pass only moves forward from
		// wherever this lands.
		add := daysIn(t.Year(), t.Month()) - t.Day() + j.Dom.Values[0]
		dom = t.AddDate(0, 0, add)
	}

	dow := t
	wd := int(t.Weekday()) // Sunday=0, same numbering as the field
	if w, ok := scanFrom(j.Dow.Values, wd, maxDow); ok {
		if w > wd {
			dow = t.AddDate(0, 0, w-wd)
		}
	} else {
		dow = t.AddDate(0, 0, maxDow-wd+j.Dow.Values[0])
	}

	switch {
	case j.Dom.Restricted() && !j.Dow.Restricted():
		return dom
	case !j.Dom.Restricted() && j.Dow.Restricted():
		return dow
	case j.Dom.Restricted() && j.Dow.Restricted():
		// Both restricted: the job runs on whichever matches first.
		if dom.Before(dow) {
			return dom
		}
		return dow
	default:
		return dom
	}
}

func (j *Job) nextMonth(t time.Time) time.Time {
	if m, ok := scanFrom(j.Month.Values, int(t.Month()), maxMonth); ok {
		if m != int(t.Month()) {
			t = setMonth(t, m)
		}
		return t
	}
	return time.Date(t.Year()+1, time.Month(j.Month.Values[0]), t.Day(),
		t.Hour(), t.Minute(), 0, 0, t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// The set* helpers replace one component via time.Date, which normalizes
// out-of-range results (setting day 31 in February rolls into March).

func setMinute(t time.Time, m int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), m, 0, 0, t.Location())
}

func setHour(t time.Time, h int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), h, t.Minute(), 0, 0, t.Location())
}

func setDay(t time.Time, d int) time.Time {
	return time.Date(t.Year(), t.Month(), d, t.Hour(), t.Minute(), 0, 0, t.Location())
}

func setMonth(t time.Time, m int) time.Time {
	return time.Date(t.Year(), time.Month(m), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}
