// internal/repository/upload_log_repository.go
package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
)

const DefaultUploadLogTable = "upload_logs"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type UploadLogRepository interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, record *domain.AuditRecord) error
	ListRecent(ctx context.Context, limit int) ([]domain.AuditRecord, error)
}

// SQLUploadLogRepository stores audit records in Postgres or SQLite. Queries
// are written with ? placeholders and rebound for the driver.
type SQLUploadLogRepository struct {
	db    *sqlx.DB
	table string
}

func NewUploadLogRepository(db *sqlx.DB, table string) (*SQLUploadLogRepository, error) {
	if table == "" {
		table = DefaultUploadLogTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid upload log table name %q", table)
	}
	return &SQLUploadLogRepository{db: db, table: table}, nil
}

func (r *SQLUploadLogRepository) EnsureSchema(ctx context.Context) error {
	timestampType := "TIMESTAMPTZ"
	if r.db.DriverName() == "sqlite" {
		timestampType = "TIMESTAMP"
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			file_size BIGINT NOT NULL,
			file_type TEXT NOT NULL DEFAULT '',
			upload_url TEXT NOT NULL,
			uploaded_at %s NOT NULL
		)
	`, r.table, timestampType)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.table, err)
	}
	return nil
}

func (r *SQLUploadLogRepository) Insert(ctx context.Context, record *domain.AuditRecord) error {
	query := r.db.Rebind(fmt.Sprintf(`
		INSERT INTO %s (id, filename, file_size, file_type, upload_url, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.table))

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Filename,
		record.FileSize,
		record.FileType,
		record.UploadURL,
		record.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload log: %w", err)
	}
	return nil
}

func (r *SQLUploadLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := r.db.Rebind(fmt.Sprintf(`
		SELECT id, filename, file_size, file_type, upload_url, uploaded_at
		FROM %s
		ORDER BY uploaded_at DESC
		LIMIT ?
	`, r.table))

	records := make([]domain.AuditRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list upload logs: %w", err)
	}
	return records, nil
}

var _ UploadLogRepository = (*SQLUploadLogRepository)(nil)
