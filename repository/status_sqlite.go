package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tieubaoca/pdf-chat-be/types"
)

const statusSchema = `
CREATE TABLE IF NOT EXISTS ingest_status (
	file_id       TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	progress      INTEGER NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	start_time    INTEGER NOT NULL
)`

type sqliteStatusRepo struct {
	db *sql.DB
}

// NewSQLiteStatusRepo opens (or creates) the database at path. ":memory:"
// gives a private in-memory database.
func NewSQLiteStatusRepo(path string) (StatusRepo, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(statusSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &sqliteStatusRepo{db: db}, nil
}

func (r *sqliteStatusRepo) Put(ctx context.Context, record *types.StatusRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ingest_status (file_id, status, progress, error_message, start_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			error_message = excluded.error_message,
			start_time = excluded.start_time`,
		record.FileID, record.Status, record.Progress, record.ErrorMessage, record.StartTime.UnixNano())
	if err != nil {
		return fmt.Errorf("saving status: %w", err)
	}
	return nil
}

func (r *sqliteStatusRepo) Get(ctx context.Context, fileID string) (*types.StatusRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT file_id, status, progress, error_message, start_time
		FROM ingest_status WHERE file_id = ?`, fileID)
	record, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}
	return record, nil
}

func (r *sqliteStatusRepo) Delete(ctx context.Context, fileIDs ...string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range fileIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ingest_status WHERE file_id = ?`, id); err != nil {
			return fmt.Errorf("deleting status %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (r *sqliteStatusRepo) List(ctx context.Context) ([]*types.StatusRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT file_id, status, progress, error_message, start_time
		FROM ingest_status ORDER BY file_id`)
	if err != nil {
		return nil, fmt.Errorf("listing status: %w", err)
	}
	defer rows.Close()

	var records []*types.StatusRecord
	for rows.Next() {
		record, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning status: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *sqliteStatusRepo) Close(ctx context.Context) error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (*types.StatusRecord, error) {
	var (
		record types.StatusRecord
		start  int64
	)
	if err := row.Scan(&record.FileID, &record.Status, &record.Progress, &record.ErrorMessage, &start); err != nil {
		return nil, err
	}
	record.StartTime = time.Unix(0, start)
	return &record, nil
}
