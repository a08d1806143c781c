/**
 * PostgreSQL Client for the electoral roll worker
 *
 * Handles job status persistence and storage of extracted cover records and
 * voter tables.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/adverant/nexus/electoralroll-worker/internal/extraction"
)

// Schema holds every table the worker writes
const Schema = "electoralroll"

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID            string
	Status           string
	Kind             string
	FileName         string
	PagesProcessed   int
	PagesFailed      int
	ProcessingTimeMs int64
	ErrorCode        string
	ErrorMessage     string
	Metadata         map[string]interface{}
}

// NewPostgresClient creates a new PostgreSQL client. The initial ping is
// retried so the worker can start alongside the database.
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	err = retry.Do(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		},
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// UpdateJobStatus upserts the job row so the first status update creates it.
func (p *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if update.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	if update.Status == "" {
		return fmt.Errorf("status is required")
	}

	metadataJSON, err := json.Marshal(update.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	metadataJSON = sanitizeJSONForPostgres(metadataJSON)

	query := `
		INSERT INTO electoralroll.processing_jobs (
			id, kind, file_name, status, pages_processed, pages_failed,
			processing_time_ms, error_code, error_message, metadata,
			created_at, updated_at
		) VALUES (
			$1::uuid, COALESCE(NULLIF($2, ''), 'cover'), COALESCE(NULLIF($3, ''), 'unknown'),
			$4, $5, $6, NULLIF($7, 0), NULLIF($8, ''), NULLIF($9, ''),
			COALESCE($10::jsonb, '{}'::jsonb),
			NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			kind = COALESCE(NULLIF($2, ''), electoralroll.processing_jobs.kind),
			file_name = COALESCE(NULLIF($3, ''), electoralroll.processing_jobs.file_name),
			pages_processed = GREATEST(EXCLUDED.pages_processed, electoralroll.processing_jobs.pages_processed),
			pages_failed = GREATEST(EXCLUDED.pages_failed, electoralroll.processing_jobs.pages_failed),
			processing_time_ms = COALESCE(EXCLUDED.processing_time_ms, electoralroll.processing_jobs.processing_time_ms),
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			metadata = electoralroll.processing_jobs.metadata || EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING id
	`

	var returnedID string
	err = p.db.QueryRowContext(
		ctx,
		query,
		update.JobID,            // $1
		update.Kind,             // $2
		update.FileName,         // $3
		update.Status,           // $4
		update.PagesProcessed,   // $5
		update.PagesFailed,      // $6
		update.ProcessingTimeMs, // $7
		update.ErrorCode,        // $8
		update.ErrorMessage,     // $9
		metadataJSON,            // $10
	).Scan(&returnedID)

	if err == sql.ErrNoRows {
		return fmt.Errorf("job not found: %s", update.JobID)
	}

	if err != nil {
		return fmt.Errorf("failed to update job status (job=%s, status=%s): %w",
			update.JobID, update.Status, err)
	}

	return nil
}

// StoreCoverRecord inserts one reconciled cover record and returns its ID.
func (p *PostgresClient) StoreCoverRecord(ctx context.Context, jobID string, rec *extraction.PageRecord) (string, error) {
	if jobID == "" {
		return "", fmt.Errorf("job ID is required")
	}

	doc := extraction.NewCoverDocument(rec)
	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fields: %w", err)
	}
	candidatesJSON, err := json.Marshal(doc.Candidates)
	if err != nil {
		return "", fmt.Errorf("failed to marshal candidates: %w", err)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO electoralroll.page_records (
			id, job_id, file_name, page_index, part,
			fields, candidates, sanity, conflicts, created_at
		) VALUES ($1, $2::uuid, $3, $4, $5, $6, $7, $8, $9, NOW())
	`
	_, err = p.db.ExecContext(ctx, query,
		id,
		jobID,
		doc.FileName,
		doc.Page,
		doc.Fields[extraction.LabelPart],
		sanitizeJSONForPostgres(fieldsJSON),
		sanitizeJSONForPostgres(candidatesJSON),
		pq.Array(doc.Sanity),
		pq.Array(doc.Conflicts),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store cover record: %w", err)
	}

	return id, nil
}

// voterColumns is the COPY column list for voter_entries
var voterColumns = []string{
	"job_id", "file_name", "page_index", "slot", "voter_id", "name",
	"age", "raw_age", "sex", "house_number", "family_name", "found_mask",
}

// StoreTablePage bulk-loads the 30 slots of a table page with COPY. A page
// is replaced if it was stored before for the same job.
func (p *PostgresClient) StoreTablePage(ctx context.Context, jobID string, page *extraction.TablePage) error {
	if jobID == "" {
		return fmt.Errorf("job ID is required")
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM electoralroll.voter_entries WHERE job_id = $1::uuid AND file_name = $2 AND page_index = $3`,
		jobID, page.FileName, page.PageIndex,
	); err != nil {
		return fmt.Errorf("failed to clear previous page: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(Schema, "voter_entries", voterColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for _, v := range page.Entries {
		if _, err := stmt.ExecContext(ctx,
			jobID, page.FileName, page.PageIndex, v.Slot, v.VoterID, v.Name,
			v.Age, v.RawAge, string(v.Sex), v.HouseNumber, v.FamilyName, int(v.Found),
		); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy slot %d: %w", v.Slot, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table page: %w", err)
	}
	return nil
}

// GetJobByID retrieves a job by ID
func (p *PostgresClient) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	query := `
		SELECT
			id, kind, file_name, status, pages_processed, pages_failed,
			processing_time_ms, error_code, error_message, metadata,
			created_at, updated_at
		FROM electoralroll.processing_jobs
		WHERE id = $1::uuid
	`

	var (
		id, kind, fileName, status  string
		pagesProcessed, pagesFailed int
		processingTimeMs            sql.NullInt64
		errorCode, errorMessage     sql.NullString
		metadataJSON                []byte
		createdAt, updatedAt        time.Time
	)

	err := p.db.QueryRowContext(ctx, query, jobID).Scan(
		&id, &kind, &fileName, &status, &pagesProcessed, &pagesFailed,
		&processingTimeMs, &errorCode, &errorMessage, &metadataJSON,
		&createdAt, &updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var metadata map[string]interface{}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	result := map[string]interface{}{
		"id":             id,
		"kind":           kind,
		"fileName":       fileName,
		"status":         status,
		"pagesProcessed": pagesProcessed,
		"pagesFailed":    pagesFailed,
		"createdAt":      createdAt,
		"updatedAt":      updatedAt,
		"metadata":       metadata,
	}

	if processingTimeMs.Valid {
		result["processingTimeMs"] = processingTimeMs.Int64
	}
	if errorCode.Valid {
		result["errorCode"] = errorCode.String
	}
	if errorMessage.Valid {
		result["errorMessage"] = errorMessage.String
	}

	return result, nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}
