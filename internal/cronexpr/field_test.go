package cronexpr

import (
	"errors"
	"reflect"
	"sort"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		text     string
		min, max int
		want     []int
	}{
		{"wildcard minutes", "*", 0, 60, seq(0, 59)},
		{"wildcard months", "*", 1, 13, seq(1, 12)},
		{"step fifteen", "*/15", 0, 60, []int{0, 15, 30, 45}},
		{"step seven hours", "*/7", 0, 24, []int{0, 7, 14, 21}},
		{"step larger than range", "*/100", 0, 60, []int{0}},
		{"plain integer", "5", 0, 60, []int{5}},
		{"range", "9-17", 0, 24, seq(9, 17)},
		{"single value range", "4-4", 0, 24, []int{4}},
		{"comma list with range", "1,5,10-12", 1, 13, []int{1, 5, 10, 11, 12}},
		{"unsorted duplicates", "3,1,2,2", 0, 60, []int{1, 2, 3}},
		{"overlapping ranges", "1-4,3-6", 0, 60, []int{1, 2, 3, 4, 5, 6}},
		// Explicit values are passed through unclamped; only wildcard and
		// step expansion are bounded by the field range.
		{"out of range integer", "75", 0, 60, []int{75}},
		{"out of range bound", "55-65", 0, 60, seq(55, 65)},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Resolve(tc.text, tc.min, tc.max)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tc.text, err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Resolve(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
	}{
		{"empty token", ""},
		{"non numeric", "every"},
		{"non numeric step", "*/x"},
		{"zero step", "*/0"},
		{"negative step", "*/-5"},
		{"non numeric range bound", "1-b"},
		{"descending range", "5-3"},
		{"empty comma element", "1,,2"},
		{"bad element in list", "1,x,3"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Resolve(tc.text, 0, 60)
			if err == nil {
				t.Fatalf("Resolve(%q): expected error, got nil", tc.text)
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("Resolve(%q): expected *FieldError, got %T (%v)", tc.text, err, err)
			}
		})
	}
}

// Wildcard and step results must stay inside [min, max), sorted, with no
// duplicates.
func TestResolveBoundedExpressions(t *testing.T) {
	t.Parallel()

	ranges := []struct{ min, max int }{
		{0, 60}, {0, 24}, {1, 32}, {1, 13}, {0, 7},
	}
	exprs := []string{"*", "*/2", "*/3", "*/5", "*/11"}

	for _, r := range ranges {
		for _, expr := range exprs {
			got, err := Resolve(expr, r.min, r.max)
			if err != nil {
				t.Fatalf("Resolve(%q, %d, %d): %v", expr, r.min, r.max, err)
			}
			if !sort.IntsAreSorted(got) {
				t.Fatalf("Resolve(%q, %d, %d) not sorted: %v", expr, r.min, r.max, got)
			}
			for i, v := range got {
				if v < r.min || v >= r.max {
					t.Fatalf("Resolve(%q, %d, %d) value %d out of range", expr, r.min, r.max, v)
				}
				if i > 0 && got[i-1] == v {
					t.Fatalf("Resolve(%q, %d, %d) duplicate %d", expr, r.min, r.max, v)
				}
			}
		}
	}
}

// seq returns the integers lo..hi inclusive.
func seq(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}
