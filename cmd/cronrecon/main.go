// Command cronrecon inspects crontab files: it lists the jobs they define,
// computes when each will next run, and keeps an audit history of crontab
// snapshots.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/patrickspencer/cronrecon/internal/config"
	"github.com/patrickspencer/cronrecon/internal/store"
	"github.com/patrickspencer/cronrecon/internal/tab"
	"github.com/patrickspencer/cronrecon/internal/web"
)

const timeFormat = "2006-01-02 15:04 MST"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "next":
		os.Exit(runNext(os.Args[2:]))
	case "upcoming":
		os.Exit(runUpcoming(os.Args[2:]))
	case "match":
		os.Exit(runMatch(os.Args[2:]))
	case "snapshot":
		os.Exit(runSnapshot(os.Args[2:]))
	case "snapshots":
		os.Exit(runSnapshots(os.Args[2:]))
	case "serve":
		os.Exit(runServe(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cronrecon <subcommand> [flags]

subcommands:
  list       list the jobs in the crontab
  next       show the single soonest job
  upcoming   show the next runs across all jobs
  match      list jobs whose command contains a substring
  snapshot   record the crontab in the snapshot store
  snapshots  list recorded snapshots
  serve      run the HTTP API`)
}

// commonFlags registers the flags shared by every subcommand.
func commonFlags(fs *flag.FlagSet) (configPath, crontab *string) {
	configPath = fs.String("config", "cronrecon.yaml", "path to configuration file")
	crontab = fs.String("crontab", "", "crontab file (overrides config)")
	return configPath, crontab
}

// loadConfig reads the configuration, falling back to built-in defaults
// when the default config file does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) && path == "cronrecon.yaml" {
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

func crontabPath(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	return cfg.Crontab
}

// loadRegistry loads the crontab and reports unparseable lines to stderr
// without failing the run.
func loadRegistry(path string) (*tab.Registry, error) {
	reg, err := tab.Load(path)
	if err != nil {
		return nil, err
	}
	for _, s := range reg.Skipped() {
		log.Printf("WARNING: %s:%d: skipping line: %v", path, s.LineNo, s.Err)
	}
	return reg, nil
}

// parseRef parses the -from reference instant, defaulting to now.
func parseRef(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	ref, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad -from instant (want RFC3339): %w", err)
	}
	return ref, nil
}

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath, crontab := commonFlags(fs)
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	reg, err := loadRegistry(crontabPath(cfg, *crontab))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	for _, job := range reg.Jobs() {
		fmt.Println(job)
	}
	return 0
}

func runNext(args []string) int {
	fs := flag.NewFlagSet("next", flag.ExitOnError)
	configPath, crontab := commonFlags(fs)
	from := fs.String("from", "", "reference instant (RFC3339, default now)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	ref, err := parseRef(*from)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	reg, err := loadRegistry(crontabPath(cfg, *crontab))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	run, ok := reg.NextJob(ref)
	if !ok {
		fmt.Fprintln(os.Stderr, "no runnable jobs in crontab")
		return 1
	}
	fmt.Printf("%s  %s\n", run.RunAt.Format(timeFormat), run.Job.Action)
	return 0
}

func runUpcoming(args []string) int {
	fs := flag.NewFlagSet("upcoming", flag.ExitOnError)
	configPath, crontab := commonFlags(fs)
	n := fs.Int("n", 0, "number of jobs to show (default from config)")
	from := fs.String("from", "", "reference instant (RFC3339, default now)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	ref, err := parseRef(*from)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	reg, err := loadRegistry(crontabPath(cfg, *crontab))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	count := *n
	if count <= 0 {
		count = cfg.Upcoming
	}

	runs, failed := reg.Upcoming(count, ref)
	for _, run := range runs {
		fmt.Printf("%s  %s\n", run.RunAt.Format(timeFormat), run.Job.Action)
	}
	for _, err := range failed {
		log.Printf("WARNING: %v", err)
	}
	return 0
}

func runMatch(args []string) int {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	configPath, crontab := commonFlags(fs)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cronrecon match [flags] <substring>")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	reg, err := loadRegistry(crontabPath(cfg, *crontab))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	for _, job := range reg.Match(fs.Arg(0)) {
		fmt.Println(job)
	}
	return 0
}

// openStore creates the data directory and opens the snapshot database.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}
	return store.NewSQLiteStore(filepath.Join(cfg.DataDir, "cronrecon.db"))
}

// takeSnapshot reads the crontab and records it in the store.
func takeSnapshot(ctx context.Context, st store.SnapshotStore, path string) (*store.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading crontab: %w", err)
	}

	reg, err := tab.Parse(strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	return st.Record(ctx, &store.Snapshot{
		Source:    path,
		SHA256:    hex.EncodeToString(sum[:]),
		Content:   string(data),
		LineCount: strings.Count(string(data), "\n"),
		JobCount:  len(reg.Jobs()),
	})
}

func runSnapshot(args []string) int {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	configPath, crontab := commonFlags(fs)
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	st, err := openStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer st.Close()

	snap, err := takeSnapshot(context.Background(), st, crontabPath(cfg, *crontab))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("snapshot %s (%d jobs) recorded for %s\n", snap.ID, snap.JobCount, snap.Source)
	return 0
}

func runSnapshots(args []string) int {
	fs := flag.NewFlagSet("snapshots", flag.ExitOnError)
	configPath, _ := commonFlags(fs)
	limit := fs.Int("limit", 20, "maximum number of snapshots to list")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	st, err := openStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer st.Close()

	snaps, err := st.List(context.Background(), *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, s := range snaps {
		fmt.Printf("%s  %s  %s  %d job(s)\n",
			s.ID, s.TakenAt.Format(timeFormat), s.Source, s.JobCount)
	}
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath, crontab := commonFlags(fs)
	listen := fs.String("listen", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	path := crontabPath(cfg, *crontab)

	st, err := openStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer st.Close()

	srv := web.NewServer(
		cfg.Listen,
		st,
		func() (*tab.Registry, error) { return tab.Load(path) },
		func(ctx context.Context) (*store.Snapshot, error) { return takeSnapshot(ctx, st, path) },
		cfg.Upcoming,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			return 1
		}
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
			return 1
		}
	}
	return 0
}
