package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// NewSnapshotID generates a new ULID-based snapshot identifier.
func NewSnapshotID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// SQLiteStore implements SnapshotStore backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const timeFormat = time.RFC3339Nano

// Record inserts a snapshot unless the latest one for the same source
// already has the same digest, in which case the existing row is returned.
func (s *SQLiteStore) Record(ctx context.Context, snap *Snapshot) (*Snapshot, error) {
	latest, err := s.Latest(ctx, snap.Source)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if latest != nil && latest.SHA256 == snap.SHA256 {
		return latest, nil
	}

	stored := *snap
	if stored.ID == "" {
		stored.ID = NewSnapshotID()
	}
	if stored.TakenAt.IsZero() {
		stored.TakenAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, source, sha256, content, line_count, job_count, taken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Source, stored.SHA256, stored.Content,
		stored.LineCount, stored.JobCount, stored.TakenAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return &stored, nil
}

// Get returns a snapshot by ID, including its content.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, sha256, content, line_count, job_count, taken_at
		FROM snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

// Latest returns the most recent snapshot for a source.
func (s *SQLiteStore) Latest(ctx context.Context, source string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, sha256, content, line_count, job_count, taken_at
		FROM snapshots WHERE source = ?
		ORDER BY taken_at DESC, id DESC LIMIT 1`, source)
	return scanSnapshot(row)
}

// List returns up to limit snapshots, newest first. Content is omitted to
// keep listings light; use Get for the full text.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, sha256, '', line_count, job_count, taken_at
		FROM snapshots
		ORDER BY taken_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var (
		snap    Snapshot
		takenAt string
	)
	err := row.Scan(&snap.ID, &snap.Source, &snap.SHA256, &snap.Content,
		&snap.LineCount, &snap.JobCount, &takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	snap.TakenAt, err = time.Parse(timeFormat, takenAt)
	if err != nil {
		return nil, fmt.Errorf("parse taken_at: %w", err)
	}
	return &snap, nil
}
