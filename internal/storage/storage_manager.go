/**
 * Storage Manager for the electoral roll worker
 *
 * Owns the schema and is the single entry point the processor writes through.
 */

package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/adverant/nexus/electoralroll-worker/internal/extraction"
)

// StorageManager coordinates PostgreSQL operations
type StorageManager struct {
	postgres *PostgresClient
}

// NewStorageManager creates a new storage manager
func NewStorageManager(postgresURL string) (*StorageManager, error) {
	postgres, err := NewPostgresClient(postgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}

	return &StorageManager{postgres: postgres}, nil
}

// schemaStatements create the worker tables. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS electoralroll`,
	`CREATE TABLE IF NOT EXISTS electoralroll.processing_jobs (
		id                 UUID PRIMARY KEY,
		kind               TEXT NOT NULL,
		file_name          TEXT NOT NULL,
		status             TEXT NOT NULL,
		pages_processed    INTEGER NOT NULL DEFAULT 0,
		pages_failed       INTEGER NOT NULL DEFAULT 0,
		processing_time_ms BIGINT,
		error_code         TEXT,
		error_message      TEXT,
		metadata           JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS electoralroll.page_records (
		id         UUID PRIMARY KEY,
		job_id     UUID NOT NULL REFERENCES electoralroll.processing_jobs(id) ON DELETE CASCADE,
		file_name  TEXT NOT NULL,
		page_index INTEGER NOT NULL,
		part       TEXT NOT NULL,
		fields     JSONB NOT NULL,
		candidates JSONB NOT NULL,
		sanity     TEXT[] NOT NULL,
		conflicts  TEXT[],
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS page_records_job_idx ON electoralroll.page_records (job_id)`,
	`CREATE TABLE IF NOT EXISTS electoralroll.voter_entries (
		job_id       UUID NOT NULL REFERENCES electoralroll.processing_jobs(id) ON DELETE CASCADE,
		file_name    TEXT NOT NULL,
		page_index   INTEGER NOT NULL,
		slot         SMALLINT NOT NULL,
		voter_id     TEXT NOT NULL,
		name         TEXT NOT NULL,
		age          SMALLINT NOT NULL,
		raw_age      TEXT NOT NULL,
		sex          TEXT NOT NULL,
		house_number TEXT NOT NULL,
		family_name  TEXT NOT NULL,
		found_mask   SMALLINT NOT NULL,
		PRIMARY KEY (job_id, file_name, page_index, slot)
	)`,
}

// EnsureSchema creates the schema and tables if they do not exist.
func (sm *StorageManager) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := sm.postgres.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// UpdateJobStatus updates job status in PostgreSQL
func (sm *StorageManager) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	return sm.postgres.UpdateJobStatus(ctx, update)
}

// StoreCoverRecord stores a reconciled cover record
func (sm *StorageManager) StoreCoverRecord(ctx context.Context, jobID string, rec *extraction.PageRecord) error {
	_, err := sm.postgres.StoreCoverRecord(ctx, jobID, rec)
	return err
}

// StoreTablePage stores the voter slots of one table page
func (sm *StorageManager) StoreTablePage(ctx context.Context, jobID string, page *extraction.TablePage) error {
	return sm.postgres.StoreTablePage(ctx, jobID, page)
}

// GetJobByID retrieves job by ID
func (sm *StorageManager) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	return sm.postgres.GetJobByID(ctx, jobID)
}

// GetStats returns connection pool statistics
func (sm *StorageManager) GetStats(ctx context.Context) (map[string]interface{}, error) {
	if err := sm.postgres.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach PostgreSQL: %w", err)
	}
	pgStats := sm.postgres.GetStats()

	return map[string]interface{}{
		"postgres": map[string]interface{}{
			"max_open_connections": pgStats.MaxOpenConnections,
			"open_connections":     pgStats.OpenConnections,
			"in_use":               pgStats.InUse,
			"idle":                 pgStats.Idle,
			"wait_count":           pgStats.WaitCount,
			"wait_duration":        pgStats.WaitDuration.String(),
		},
	}, nil
}

// Close closes all connections
func (sm *StorageManager) Close() error {
	if sm.postgres != nil {
		if err := sm.postgres.Close(); err != nil {
			return fmt.Errorf("failed to close PostgreSQL: %w", err)
		}
	}
	return nil
}

// jsonEscape matches one escape sequence. Leftmost-first matching consumes an
// escaped backslash whole, so its trailing text is never read as \uXXXX.
var jsonEscape = regexp.MustCompile(`\\(?:u00[01][0-9a-fA-F]|.)`)

// sanitizeJSONForPostgres removes escapes JSONB rejects. \u0000 is dropped and
// other control character escapes become a space. OCR output occasionally
// carries both.
func sanitizeJSONForPostgres(jsonBytes []byte) []byte {
	return jsonEscape.ReplaceAllFunc(jsonBytes, func(esc []byte) []byte {
		switch {
		case len(esc) == 2:
			return esc
		case string(esc) == `\u0000`:
			return nil
		default:
			return []byte(" ")
		}
	})
}
