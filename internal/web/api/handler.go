package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patrickspencer/cronrecon/internal/cronexpr"
	"github.com/patrickspencer/cronrecon/internal/store"
	"github.com/patrickspencer/cronrecon/internal/tab"
)

// API holds dependencies for all API handlers.
type API struct {
	Store store.SnapshotStore

	// Registry loads the configured crontab. Called per request so edits
	// to the crontab are always visible.
	Registry func() (*tab.Registry, error)

	// TakeSnapshot records the current crontab in the store.
	TakeSnapshot func(ctx context.Context) (*store.Snapshot, error)

	// DefaultUpcoming is the job count used when ?n= is absent.
	DefaultUpcoming int
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/jobs", a.handleJobs)
	mux.HandleFunc("/api/v1/upcoming", a.handleUpcoming)
	mux.HandleFunc("/api/v1/snapshots/", a.handleGetSnapshot)
	mux.HandleFunc("/api/v1/snapshots", a.handleSnapshots)
	mux.HandleFunc("/api/v1/health", a.handleHealth)
}

type jobView struct {
	Schedule string `json:"schedule"`
	Action   string `json:"action"`
}

func viewJob(j *cronexpr.Job) jobView {
	return jobView{
		Schedule: strings.Join([]string{j.Minute.Raw, j.Hour.Raw, j.Dom.Raw, j.Month.Raw, j.Dow.Raw}, " "),
		Action:   j.Action,
	}
}

type skippedView struct {
	Line  int    `json:"line"`
	Text  string `json:"text"`
	Error string `json:"error"`
}

// handleJobs lists the parsed jobs, optionally filtered with ?match=substr.
func (a *API) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	reg, err := a.Registry()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	jobs := reg.Jobs()
	if match := r.URL.Query().Get("match"); match != "" {
		jobs = reg.Match(match)
	}

	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, viewJob(j))
	}
	skipped := make([]skippedView, 0, len(reg.Skipped()))
	for _, s := range reg.Skipped() {
		skipped = append(skipped, skippedView{Line: s.LineNo, Text: s.Text, Error: s.Err.Error()})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":    views,
		"skipped": skipped,
	})
}

type upcomingView struct {
	jobView
	RunAt time.Time `json:"run_at"`
}

// handleUpcoming lists the next n runs across all jobs.
func (a *API) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	n := a.DefaultUpcoming
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be an integer"})
			return
		}
		n = v
	}

	reg, err := a.Registry()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	runs, failed := reg.Upcoming(n, time.Now())
	views := make([]upcomingView, 0, len(runs))
	for _, run := range runs {
		views = append(views, upcomingView{jobView: viewJob(run.Job), RunAt: run.RunAt})
	}
	failures := make([]string, 0, len(failed))
	for _, err := range failed {
		failures = append(failures, err.Error())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"upcoming": views,
		"failed":   failures,
	})
}

type snapshotView struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	SHA256    string    `json:"sha256"`
	LineCount int       `json:"line_count"`
	JobCount  int       `json:"job_count"`
	TakenAt   time.Time `json:"taken_at"`
	Content   string    `json:"content,omitempty"`
}

func viewSnapshot(s *store.Snapshot) snapshotView {
	return snapshotView{
		ID:        s.ID,
		Source:    s.Source,
		SHA256:    s.SHA256,
		LineCount: s.LineCount,
		JobCount:  s.JobCount,
		TakenAt:   s.TakenAt,
		Content:   s.Content,
	}
}

// handleSnapshots lists snapshots (GET) or records a new one (POST).
func (a *API) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
				return
			}
			limit = v
		}
		snaps, err := a.Store.List(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		views := make([]snapshotView, 0, len(snaps))
		for _, s := range snaps {
			views = append(views, viewSnapshot(s))
		}
		writeJSON(w, http.StatusOK, map[string]any{"snapshots": views})

	case http.MethodPost:
		snap, err := a.TakeSnapshot(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, viewSnapshot(snap))

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// handleGetSnapshot serves /api/v1/snapshots/{id}.
func (a *API) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/snapshots/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	snap, err := a.Store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, viewSnapshot(snap))
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to write JSON response: %v", err)
	}
}
