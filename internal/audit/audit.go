// Package audit persists one record per successful upload. Every sink is
// best effort: callers treat a returned error as a side result, never as a
// failed upload.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
)

// Logger writes audit records.
type Logger interface {
	Record(ctx context.Context, record domain.AuditRecord) error
}

// NewRecord builds the audit row for a stored object.
func NewRecord(req *domain.UploadRequest, res *domain.UploadResult, at time.Time) domain.AuditRecord {
	return domain.AuditRecord{
		ID:         uuid.NewString(),
		Filename:   res.Key,
		FileSize:   req.Size,
		FileType:   req.ContentType,
		UploadURL:  res.URL,
		UploadedAt: at.UTC(),
	}
}

type noopLogger struct{}

// Noop discards every record.
func Noop() Logger {
	return noopLogger{}
}

func (noopLogger) Record(context.Context, domain.AuditRecord) error {
	return nil
}

type failingLogger struct {
	err error
}

// Failing returns a Logger that reports err on every write. It stands in for a
// sink that could not be constructed at startup.
func Failing(err error) Logger {
	return failingLogger{err: err}
}

func (l failingLogger) Record(context.Context, domain.AuditRecord) error {
	return l.err
}
