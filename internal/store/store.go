// Package store archives collected reports in a local SQLite database
// so past snapshots of a machine can be compared after a hardware
// change. Saving is on demand only; nothing here runs in the
// background.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SnapshotRecord is one archived report row.
type SnapshotRecord struct {
	ID          int64
	SnapshotID  string
	Hostname    string
	Platform    string
	CollectedAt time.Time
	StoredAt    time.Time
	ReportJSON  string
}

// ListFilter holds optional query parameters for listing snapshots.
type ListFilter struct {
	Hostname        string
	CollectedAfter  *time.Time
	CollectedBefore *time.Time
	Limit           int
}

// Store provides snapshot persistence.
type Store struct {
	db *sql.DB
}

// New opens the SQLite database at path and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a report and returns its generated snapshot ID.
func (s *Store) Save(ctx context.Context, hostname, platform string, collectedAt time.Time, reportJSON string) (string, error) {
	id := uuid.NewString()
	storedAt := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (snapshot_id, hostname, platform, collected_at, stored_at, report_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		hostname,
		platform,
		collectedAt.UTC().Format(time.RFC3339),
		storedAt.Format(time.RFC3339),
		reportJSON,
	)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return id, nil
}

// Get retrieves a snapshot by its ID.
func (s *Store) Get(ctx context.Context, snapshotID string) (*SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, snapshot_id, hostname, platform, collected_at, stored_at, report_json
		 FROM snapshots WHERE snapshot_id = ?`, snapshotID)

	return scanRecord(row)
}

// Latest retrieves the most recent snapshot for a hostname.
func (s *Store) Latest(ctx context.Context, hostname string) (*SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, snapshot_id, hostname, platform, collected_at, stored_at, report_json
		 FROM snapshots WHERE hostname = ? ORDER BY collected_at DESC LIMIT 1`, hostname)

	return scanRecord(row)
}

// List returns snapshot summaries matching the filter, newest first.
// The report body is omitted from summaries.
func (s *Store) List(ctx context.Context, f ListFilter) ([]SnapshotRecord, error) {
	where, args := buildWhere(f)

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, snapshot_id, hostname, platform, collected_at, stored_at, ''
		FROM snapshots` + where + ` ORDER BY collected_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		var collectedAt, storedAt string
		if err := rows.Scan(&rec.ID, &rec.SnapshotID, &rec.Hostname, &rec.Platform, &collectedAt, &storedAt, &rec.ReportJSON); err != nil {
			return nil, err
		}
		rec.CollectedAt, _ = time.Parse(time.RFC3339, collectedAt)
		rec.StoredAt, _ = time.Parse(time.RFC3339, storedAt)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Delete removes a snapshot by ID.
func (s *Store) Delete(ctx context.Context, snapshotID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE snapshot_id = ?`, snapshotID)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Purge deletes snapshots older than the given duration and returns the
// number removed.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE collected_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge snapshots: %w", err)
	}
	return result.RowsAffected()
}

func buildWhere(f ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if f.Hostname != "" {
		conditions = append(conditions, "hostname = ?")
		args = append(args, f.Hostname)
	}
	if f.CollectedAfter != nil {
		conditions = append(conditions, "collected_at >= ?")
		args = append(args, f.CollectedAfter.UTC().Format(time.RFC3339))
	}
	if f.CollectedBefore != nil {
		conditions = append(conditions, "collected_at <= ?")
		args = append(args, f.CollectedBefore.UTC().Format(time.RFC3339))
	}

	if len(conditions) == 0 {
		return "", nil
	}

	where := " WHERE "
	for i, c := range conditions {
		if i > 0 {
			where += " AND "
		}
		where += c
	}
	return where, args
}

func scanRecord(row *sql.Row) (*SnapshotRecord, error) {
	var rec SnapshotRecord
	var collectedAt, storedAt string
	err := row.Scan(&rec.ID, &rec.SnapshotID, &rec.Hostname, &rec.Platform, &collectedAt, &storedAt, &rec.ReportJSON)
	if err != nil {
		return nil, err
	}

	rec.CollectedAt, _ = time.Parse(time.RFC3339, collectedAt)
	rec.StoredAt, _ = time.Parse(time.RFC3339, storedAt)

	return &rec, nil
}
