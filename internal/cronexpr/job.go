// Package cronexpr parses five-field crontab schedule expressions and
// computes the next wall-clock instant a schedule is due. It is purely
// computational: no clocks beyond the caller-supplied reference, no logging,
// no shared state, so everything here is safe for concurrent use.
package cronexpr

import (
	"fmt"
	"strings"
)

// Valid ranges for the five schedule fields, half-open [min, max).
// Day-of-week is Sunday=0, matching time.Weekday.
const (
	minMinute, maxMinute = 0, 60
	minHour, maxHour     = 0, 24
	minDom, maxDom       = 1, 32
	minMonth, maxMonth   = 1, 13
	minDow, maxDow       = 0, 7
)

// Job is one crontab line: five schedule fields plus the free-text action
// they trigger. Jobs are immutable after ParseLine; Next never mutates one.
type Job struct {
	Minute Field
	Hour   Field
	Dom    Field
	Month  Field
	Dow    Field

	// Action is the command text after the schedule, joined and trimmed.
	Action string

	// Line is the raw crontab line the job was parsed from.
	Line string
}

// ParseLine parses a single crontab line of the form
//
//	*/15 9-17 * * 1-5 run-backup.sh --full
//
// It returns ErrLineShape when fewer than five schedule fields are present,
// and a field-level error (wrapped with the field name) when a schedule
// token is malformed or resolves to no values.
func ParseLine(line string) (*Job, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return nil, ErrLineShape
	}

	job := &Job{
		Line:   line,
		Action: strings.TrimSpace(strings.Join(fields[5:], " ")),
	}

	specs := []struct {
		name     string
		dst      *Field
		min, max int
	}{
		{"minute", &job.Minute, minMinute, maxMinute},
		{"hour", &job.Hour, minHour, maxHour},
		{"day-of-month", &job.Dom, minDom, maxDom},
		{"month", &job.Month, minMonth, maxMonth},
		{"day-of-week", &job.Dow, minDow, maxDow},
	}
	for i, s := range specs {
		vals, err := Resolve(fields[i], s.min, s.max)
		if err != nil {
			return nil, fmt.Errorf("%s field: %w", s.name, err)
		}
		*s.dst = Field{Raw: fields[i], Values: vals}
	}

	return job, nil
}

// checkSets guards Next against jobs built by hand with empty value sets;
// ParseLine never produces one.
func (j *Job) checkSets() error {
	for _, f := range []struct {
		name  string
		field Field
	}{
		{"minute", j.Minute},
		{"hour", j.Hour},
		{"day-of-month", j.Dom},
		{"month", j.Month},
		{"day-of-week", j.Dow},
	} {
		if len(f.field.Values) == 0 {
			return fmt.Errorf("%s field: %w", f.name, ErrEmptyFieldSet)
		}
	}
	return nil
}

func (j *Job) String() string {
	return fmt.Sprintf("%s %s %s %s %s  %s",
		j.Minute.Raw, j.Hour.Raw, j.Dom.Raw, j.Month.Raw, j.Dow.Raw, j.Action)
}
