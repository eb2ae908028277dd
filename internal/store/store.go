// Package store persists crontab snapshots: the raw text of each inspected
// crontab plus enough metadata to audit how it changed over time. Computed
// schedules are never stored; they are recomputed on demand.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a snapshot ID does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one recorded crontab.
type Snapshot struct {
	ID        string
	Source    string // path the crontab was read from
	SHA256    string // hex digest of Content
	Content   string
	LineCount int
	JobCount  int
	TakenAt   time.Time
}

// SnapshotStore is the interface for persisting and querying snapshots.
type SnapshotStore interface {
	// Record stores a snapshot and returns it with ID and TakenAt filled
	// in. When the latest snapshot for the same source has the same
	// digest, nothing is written and the existing snapshot is returned.
	Record(ctx context.Context, snap *Snapshot) (*Snapshot, error)

	// Get returns a snapshot by ID, including its content.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// List returns up to limit snapshots, newest first, without content.
	List(ctx context.Context, limit int) ([]*Snapshot, error)

	// Latest returns the most recent snapshot for a source, including its
	// content.
	Latest(ctx context.Context, source string) (*Snapshot, error)
}
