package tab

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleCrontab = `# system maintenance
*/15 * * * *  check-disk.sh

  # indented comment
0 2 * * 0  weekly-backup.sh --full
0 0 1 * *  monthly-report.py
not a cron line at all
30 */3 * * *  rotate-logs.sh
`

func TestParse(t *testing.T) {
	t.Parallel()

	reg, err := Parse(strings.NewReader(sampleCrontab))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got, want := len(reg.Jobs()), 4; got != want {
		t.Fatalf("expected %d jobs, got %d", want, got)
	}
	if got, want := reg.Jobs()[0].Action, "check-disk.sh"; got != want {
		t.Fatalf("first action = %q, want %q", got, want)
	}

	skipped := reg.Skipped()
	if len(skipped) != 1 {
		t.Fatalf("expected 1 skipped line, got %d", len(skipped))
	}
	if skipped[0].LineNo != 7 {
		t.Fatalf("skipped line number = %d, want 7", skipped[0].LineNo)
	}
	if skipped[0].Err == nil {
		t.Fatal("skipped line has no error")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "crontab")
	if err := os.WriteFile(path, []byte(sampleCrontab), 0644); err != nil {
		t.Fatalf("write crontab: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := len(reg.Jobs()), 4; got != want {
		t.Fatalf("expected %d jobs, got %d", want, got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing crontab")
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	reg, err := Parse(strings.NewReader(sampleCrontab))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	jobs := reg.Match("BACKUP")
	if len(jobs) != 1 {
		t.Fatalf("expected 1 match, got %d", len(jobs))
	}
	if got, want := jobs[0].Action, "weekly-backup.sh --full"; got != want {
		t.Fatalf("matched action = %q, want %q", got, want)
	}

	if got := reg.Match(".sh"); len(got) != 3 {
		t.Fatalf("expected 3 matches for .sh, got %d", len(got))
	}
	if got := reg.Match("nothing-here"); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestUpcoming(t *testing.T) {
	t.Parallel()

	reg, err := Parse(strings.NewReader(sampleCrontab))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// 2024-03-06 11:50 UTC, a Wednesday.
	ref := time.Date(2024, time.March, 6, 11, 50, 0, 0, time.UTC)

	runs, failed := reg.Upcoming(0, ref)
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}
	if got, want := len(runs), 4; got != want {
		t.Fatalf("expected %d runs, got %d", want, got)
	}

	for i := 1; i < len(runs); i++ {
		if runs[i].RunAt.Before(runs[i-1].RunAt) {
			t.Fatalf("runs not sorted: %s before %s", runs[i].RunAt, runs[i-1].RunAt)
		}
	}

	// check-disk fires at 12:00, rotate-logs at 12:30, weekly-backup next
	// Sunday, monthly-report on April 1st.
	if got, want := runs[0].Job.Action, "check-disk.sh"; got != want {
		t.Fatalf("soonest job = %q, want %q", got, want)
	}
	if want := time.Date(2024, time.March, 6, 12, 0, 0, 0, time.UTC); !runs[0].RunAt.Equal(want) {
		t.Fatalf("soonest run at %s, want %s", runs[0].RunAt, want)
	}
	if got, want := runs[3].Job.Action, "monthly-report.py"; got != want {
		t.Fatalf("latest job = %q, want %q", got, want)
	}

	limited, _ := reg.Upcoming(2, ref)
	if len(limited) != 2 {
		t.Fatalf("expected 2 limited runs, got %d", len(limited))
	}
}

func TestNextJob(t *testing.T) {
	t.Parallel()

	reg, err := Parse(strings.NewReader(sampleCrontab))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ref := time.Date(2024, time.March, 6, 11, 50, 0, 0, time.UTC)
	run, ok := reg.NextJob(ref)
	if !ok {
		t.Fatal("expected a next job")
	}
	if got, want := run.Job.Action, "check-disk.sh"; got != want {
		t.Fatalf("next job = %q, want %q", got, want)
	}

	empty, err := Parse(strings.NewReader("# only comments\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := empty.NextJob(ref); ok {
		t.Fatal("expected no next job for empty registry")
	}
}
