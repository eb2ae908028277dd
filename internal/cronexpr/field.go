package cronexpr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrEmptyFieldSet is returned when a schedule field resolves to no
	// values at all. A job with an empty field can never run, so this is
	// fatal for the field rather than a valid "never" schedule.
	ErrEmptyFieldSet = errors.New("schedule field resolves to no values")

	// ErrLineShape is returned when a crontab line has fewer than the five
	// schedule fields required before the action text.
	ErrLineShape = errors.New("crontab line needs five schedule fields")
)

// FieldError describes a schedule field token that could not be parsed.
type FieldError struct {
	Token  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("bad schedule token %q: %s", e.Token, e.Reason)
}

// Field is one of the five positions of a cron schedule. Raw keeps the
// original token because day-of-month/day-of-week precedence depends on
// whether the user wrote "*" literally. Values is sorted ascending with
// duplicates removed.
type Field struct {
	Raw    string
	Values []int
}

// Restricted reports whether the user narrowed this field down from "*".
// Step expressions such as "*/2" count as restricted.
func (f Field) Restricted() bool {
	return f.Raw != "*"
}

// Resolve expands one raw cron field into the sorted set of integers for
// which it is satisfied. Wildcards and step expressions are bounded by the
// half-open range [min, max); explicit values are passed through unclamped,
// matching classic crontab behavior where "75" in the minute field is the
// user's problem, not the parser's.
//
// Grammar: "*", "*/N", comma lists, inclusive ranges "A-B", and plain
// integers. A comma element may itself be a range or an integer, but not a
// wildcard or step. Non-numeric tokens fail rather than being dropped, so a
// typo cannot silently thin out a schedule.
func Resolve(text string, min, max int) ([]int, error) {
	var vals []int

	switch {
	case text == "*":
		for v := min; v < max; v++ {
			vals = append(vals, v)
		}
	case strings.HasPrefix(text, "*/"):
		step, err := strconv.Atoi(text[2:])
		if err != nil {
			return nil, &FieldError{Token: text, Reason: "step is not an integer"}
		}
		if step <= 0 {
			return nil, &FieldError{Token: text, Reason: "step must be positive"}
		}
		for v := min; v < max; v += step {
			vals = append(vals, v)
		}
	default:
		var err error
		vals, err = appendList(text, vals)
		if err != nil {
			return nil, err
		}
	}

	if len(vals) == 0 {
		return nil, ErrEmptyFieldSet
	}

	sort.Ints(vals)
	return dedup(vals), nil
}

// appendList handles comma lists, ranges and plain integers, recursing over
// the comma-separated elements.
func appendList(text string, vals []int) ([]int, error) {
	if strings.Contains(text, ",") {
		var err error
		for _, part := range strings.Split(text, ",") {
			vals, err = appendList(part, vals)
			if err != nil {
				return nil, err
			}
		}
		return vals, nil
	}

	if strings.Contains(text, "-") {
		bounds := strings.SplitN(text, "-", 2)
		lo, err := strconv.Atoi(bounds[0])
		if err != nil {
			return nil, &FieldError{Token: text, Reason: "range bound is not an integer"}
		}
		hi, err := strconv.Atoi(bounds[1])
		if err != nil {
			return nil, &FieldError{Token: text, Reason: "range bound is not an integer"}
		}
		if lo > hi {
			return nil, &FieldError{Token: text, Reason: "range is descending"}
		}
		for v := lo; v <= hi; v++ {
			vals = append(vals, v)
		}
		return vals, nil
	}

	v, err := strconv.Atoi(text)
	if err != nil {
		return nil, &FieldError{Token: text, Reason: "not an integer"}
	}
	return append(vals, v), nil
}

// dedup removes adjacent duplicates from a sorted slice in place.
func dedup(vals []int) []int {
	out := vals[:1]
	for _, v := range vals[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
