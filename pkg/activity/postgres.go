package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

const defaultTable = "report_generations"

// PostgresRecorder appends generation records to a PostgreSQL table
type PostgresRecorder struct {
	db        *sql.DB
	tableName string
}

// NewPostgresRecorder connects to the database and creates the activity
// table when it does not exist.
func NewPostgresRecorder(ctx context.Context, connectionString string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := newPostgresRecorder(db)
	if err := r.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return r, nil
}

func newPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db, tableName: defaultTable}
}

func (r *PostgresRecorder) initializeSchema(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(64) PRIMARY KEY,
			generator VARCHAR(32) NOT NULL,
			module VARCHAR(64),
			requested_by VARCHAR(255),
			output_name TEXT,
			images_found INTEGER NOT NULL DEFAULT 0,
			images_placed INTEGER NOT NULL DEFAULT 0,
			images_skipped INTEGER NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL,
			status VARCHAR(16) NOT NULL,
			error TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`, r.tableName)
	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.tableName, err)
	}

	indexSQL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s (created_at DESC)`, r.tableName)
	if _, err := r.db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Record implements Recorder
func (r *PostgresRecorder) Record(ctx context.Context, rec *models.GenerationRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, generator, module, requested_by, output_name,
			images_found, images_placed, images_skipped,
			duration_ms, status, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, r.tableName)

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, string(rec.Generator), nullString(rec.Module), nullString(rec.RequestedBy), rec.OutputName,
		rec.ImagesFound, rec.ImagesPlaced, rec.ImagesSkipped,
		rec.Duration.Milliseconds(), string(rec.Status), nullString(rec.Error), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store generation record: %w", err)
	}
	return nil
}

// Recent returns the newest records, newest first
func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]*models.GenerationRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT id, generator, module, requested_by, output_name,
			images_found, images_placed, images_skipped,
			duration_ms, status, error, created_at
		FROM %s ORDER BY created_at DESC LIMIT $1`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation records: %w", err)
	}
	defer rows.Close()

	var records []*models.GenerationRecord
	for rows.Next() {
		var (
			rec                          models.GenerationRecord
			generator, status            string
			module, requestedBy, errText sql.NullString
			durationMS                   int64
		)
		if err := rows.Scan(&rec.ID, &generator, &module, &requestedBy, &rec.OutputName,
			&rec.ImagesFound, &rec.ImagesPlaced, &rec.ImagesSkipped,
			&durationMS, &status, &errText, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation record: %w", err)
		}
		rec.Generator = models.Generator(generator)
		rec.Status = models.GenerationStatus(status)
		rec.Module = module.String
		rec.RequestedBy = requestedBy.String
		rec.Error = errText.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read generation records: %w", err)
	}
	return records, nil
}

// HealthCheck pings the database
func (r *PostgresRecorder) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
