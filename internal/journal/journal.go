// Package journal keeps a local SQLite ledger of scheduled notifications so
// overlapping or repeated scheduler ticks do not deliver the same one twice.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry kinds.
const (
	KindReminder = "reminder"
	KindPreview  = "preview"
)

// Entry statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
)

// Entry is one row of the delivery ledger.
type Entry struct {
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	Slot      string    `json:"slot"`
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Journal records which (kind, key, slot) deliveries were claimed or sent.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dir/deliveries.db.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "deliveries.db"))
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}
	// One writer at a time; the scheduler fans out across goroutines.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS deliveries (
		kind       TEXT NOT NULL,
		key        TEXT NOT NULL,
		slot       TEXT NOT NULL,
		run_id     TEXT NOT NULL,
		status     TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (kind, key, slot)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating deliveries table: %w", err)
	}

	return &Journal{db: db}, nil
}

// Claim reserves a delivery slot. It returns false if the slot was already
// claimed or delivered by an earlier run.
func (j *Journal) Claim(ctx context.Context, kind, key, slot, runID string) (bool, error) {
	res, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO deliveries (kind, key, slot, run_id, status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		kind, key, slot, runID, StatusPending, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("claiming %s %s/%s: %w", kind, key, slot, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release drops a pending claim so a later run may retry the delivery.
func (j *Journal) Release(ctx context.Context, kind, key, slot string) error {
	_, err := j.db.ExecContext(ctx,
		`DELETE FROM deliveries WHERE kind = ? AND key = ? AND slot = ? AND status = ?`,
		kind, key, slot, StatusPending,
	)
	return err
}

// Record marks a delivery as sent.
func (j *Journal) Record(ctx context.Context, kind, key, slot, runID string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO deliveries (kind, key, slot, run_id, status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (kind, key, slot) DO UPDATE
		 SET run_id = excluded.run_id, status = excluded.status, updated_at = excluded.updated_at`,
		kind, key, slot, runID, StatusSent, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording %s %s/%s: %w", kind, key, slot, err)
	}
	return nil
}

// Delivered reports whether the slot was already sent.
func (j *Journal) Delivered(ctx context.Context, kind, key, slot string) (bool, error) {
	var count int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deliveries WHERE kind = ? AND key = ? AND slot = ? AND status = ?`,
		kind, key, slot, StatusSent,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Recent returns the latest ledger entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT kind, key, slot, run_id, status, updated_at
		 FROM deliveries ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Kind, &e.Key, &e.Slot, &e.RunID, &e.Status, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes entries last updated before cutoff.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM deliveries WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning deliveries: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
