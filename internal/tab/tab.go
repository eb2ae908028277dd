// Package tab loads crontab files into an in-process registry of parsed
// jobs and answers queries about them: substring matches on the command
// text and sorted upcoming-run listings.
package tab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickspencer/cronrecon/internal/cronexpr"
)

// SkippedLine records a non-comment crontab line that failed to parse. Bad
// lines never abort loading; they are collected so callers can report them.
type SkippedLine struct {
	LineNo int
	Text   string
	Err    error
}

// Run pairs a job with its computed next run time. Index is the job's
// position in the crontab, used as a stable tie-break when two jobs are due
// at the same instant.
type Run struct {
	Job   *cronexpr.Job
	Index int
	RunAt time.Time
}

// Registry holds the jobs of one crontab in file order.
type Registry struct {
	jobs    []*cronexpr.Job
	skipped []SkippedLine
}

// Load reads and parses the crontab at path.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening crontab: %w", err)
	}
	defer f.Close()

	reg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading crontab %s: %w", path, err)
	}
	return reg, nil
}

// Parse reads crontab lines from r. Empty lines and lines starting with '#'
// (after left-trim) are ignored; everything else must be a five-field
// schedule followed by the action text.
func Parse(r io.Reader) (*Registry, error) {
	reg := &Registry{}
	sc := bufio.NewScanner(r)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimLeft(sc.Text(), " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		job, err := cronexpr.ParseLine(line)
		if err != nil {
			reg.skipped = append(reg.skipped, SkippedLine{LineNo: lineNo, Text: line, Err: err})
			continue
		}
		reg.jobs = append(reg.jobs, job)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return reg, nil
}

// Jobs returns the parsed jobs in file order.
func (r *Registry) Jobs() []*cronexpr.Job {
	return r.jobs
}

// Skipped returns the lines that failed to parse.
func (r *Registry) Skipped() []SkippedLine {
	return r.skipped
}

// Match returns the jobs whose action contains substr, case-insensitively.
func (r *Registry) Match(substr string) []*cronexpr.Job {
	needle := strings.ToLower(substr)

	var out []*cronexpr.Job
	for _, job := range r.jobs {
		if strings.Contains(strings.ToLower(job.Action), needle) {
			out = append(out, job)
		}
	}
	return out
}

// Upcoming computes the next run of every job relative to ref and returns
// the runs sorted ascending by run time, truncated to n (n <= 0 means all).
// The per-job computations are independent, so they fan out across
// goroutines with only the result slice shared. Jobs whose schedule cannot
// produce a next run are reported in failed, not fatal for the batch.
func (r *Registry) Upcoming(n int, ref time.Time) (runs []Run, failed []error) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	runs = make([]Run, 0, len(r.jobs))
	for i, job := range r.jobs {
		i, job := i, job
		wg.Add(1)
		go func() {
			defer wg.Done()
			at, err := job.Next(ref)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, fmt.Errorf("job %d (%s): %w", i+1, job.Action, err))
				return
			}
			runs = append(runs, Run{Job: job, Index: i, RunAt: at})
		}()
	}
	wg.Wait()

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].RunAt.Equal(runs[j].RunAt) {
			return runs[i].RunAt.Before(runs[j].RunAt)
		}
		return runs[i].Index < runs[j].Index
	})
	sort.Slice(failed, func(i, j int) bool { return failed[i].Error() < failed[j].Error() })

	if n > 0 && n < len(runs) {
		runs = runs[:n]
	}
	return runs, failed
}

// NextJob returns the single soonest run, if any job parsed.
func (r *Registry) NextJob(ref time.Time) (Run, bool) {
	runs, _ := r.Upcoming(1, ref)
	if len(runs) == 0 {
		return Run{}, false
	}
	return runs[0], true
}
