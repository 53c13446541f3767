// Package store persists sync records in a single-file sqlite database,
// keyed by entry fingerprint, to guarantee at-most-once worklog submission
// across repeated runs.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/petra/ttsync/internal/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_records (
	fingerprint      TEXT PRIMARY KEY,
	source_ids       TEXT NOT NULL,  -- JSON array of raw entry ids, sorted
	issue_key        TEXT NOT NULL,
	description      TEXT,
	duration_seconds INTEGER NOT NULL,
	entry_date       TEXT NOT NULL,  -- YYYY-MM-DD
	worklog_id       TEXT,
	recorded_at      TEXT NOT NULL,
	extra            TEXT            -- JSON audit metadata
);

CREATE INDEX IF NOT EXISTS idx_sync_records_entry_date ON sync_records(entry_date);
`

// Store wraps the sync-record database connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the record store at path. Opening an existing
// file never destroys data; the schema is created only if absent.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// Serialized writes with concurrent reads; one sync run per file is
	// assumed, the engine's locking covers accidental overlap.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the store's database file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a record with the given fingerprint is present.
func (s *Store) Exists(fingerprint string) (bool, error) {
	var count int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM sync_records WHERE fingerprint = ?`, fingerprint).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("lookup fingerprint: %w", err)
	}
	return count > 0, nil
}

// Insert writes a sync record and returns its fingerprint. The fingerprint
// is computed from the record's identity fields when not already set.
// Inserting a fingerprint that already exists is a no-op (first-write-wins)
// and returns the fingerprint without error.
func (s *Store) Insert(rec *models.SyncRecord) (string, error) {
	sorted := make([]int64, len(rec.SourceIDs))
	copy(sorted, rec.SourceIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	rec.SourceIDs = sorted

	if rec.Fingerprint == "" {
		rec.Fingerprint = Fingerprint(rec.SourceIDs, rec.IssueKey, rec.Description, rec.DurationSeconds, rec.Date)
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}

	idsJSON, err := json.Marshal(rec.SourceIDs)
	if err != nil {
		return "", fmt.Errorf("marshal source ids: %w", err)
	}

	var extraJSON sql.NullString
	if len(rec.Extra) > 0 {
		data, err := json.Marshal(rec.Extra)
		if err != nil {
			return "", fmt.Errorf("marshal extra: %w", err)
		}
		extraJSON = sql.NullString{String: string(data), Valid: true}
	}

	var worklogID sql.NullString
	if rec.WorklogID != "" {
		worklogID = sql.NullString{String: rec.WorklogID, Valid: true}
	}

	_, err = s.conn.Exec(`
		INSERT OR IGNORE INTO sync_records
		(fingerprint, source_ids, issue_key, description, duration_seconds, entry_date, worklog_id, recorded_at, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Fingerprint, string(idsJSON), rec.IssueKey, rec.Description, rec.DurationSeconds,
		rec.Date, worklogID, rec.RecordedAt.Format(time.RFC3339), extraJSON)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}

	return rec.Fingerprint, nil
}

// Get retrieves a record by fingerprint, or nil if absent.
func (s *Store) Get(fingerprint string) (*models.SyncRecord, error) {
	row := s.conn.QueryRow(`
		SELECT fingerprint, source_ids, issue_key, description, duration_seconds, entry_date, worklog_id, recorded_at, extra
		FROM sync_records WHERE fingerprint = ?
	`, fingerprint)

	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Delete removes a record, reporting whether a row was actually removed.
func (s *Store) Delete(fingerprint string) (bool, error) {
	result, err := s.conn.Exec(`DELETE FROM sync_records WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns records ordered by entry date then recorded time, optionally
// bounded by inclusive YYYY-MM-DD dates (empty string means unbounded).
func (s *Store) List(dateFrom, dateTo string) ([]models.SyncRecord, error) {
	query := `
		SELECT fingerprint, source_ids, issue_key, description, duration_seconds, entry_date, worklog_id, recorded_at, extra
		FROM sync_records WHERE 1=1`
	var args []interface{}

	if dateFrom != "" {
		query += " AND entry_date >= ?"
		args = append(args, dateFrom)
	}
	if dateTo != "" {
		query += " AND entry_date <= ?"
		args = append(args, dateTo)
	}
	query += " ORDER BY entry_date, recorded_at"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []models.SyncRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Clear removes all records and returns the number removed.
func (s *Store) Clear() (int64, error) {
	result, err := s.conn.Exec(`DELETE FROM sync_records`)
	if err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	return result.RowsAffected()
}

func scanRecord(scan func(dest ...any) error) (*models.SyncRecord, error) {
	var rec models.SyncRecord
	var idsJSON, recordedAt string
	var worklogID, extraJSON sql.NullString

	err := scan(&rec.Fingerprint, &idsJSON, &rec.IssueKey, &rec.Description,
		&rec.DurationSeconds, &rec.Date, &worklogID, &recordedAt, &extraJSON)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(idsJSON), &rec.SourceIDs); err != nil {
		return nil, fmt.Errorf("unmarshal source ids: %w", err)
	}
	if worklogID.Valid {
		rec.WorklogID = worklogID.String
	}
	if t, err := time.Parse(time.RFC3339, recordedAt); err == nil {
		rec.RecordedAt = t
	}
	if extraJSON.Valid {
		if err := json.Unmarshal([]byte(extraJSON.String), &rec.Extra); err != nil {
			return nil, fmt.Errorf("unmarshal extra: %w", err)
		}
	}
	return &rec, nil
}
