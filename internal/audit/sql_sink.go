package audit

import (
	"context"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
	"github.com/andresuchdata/roadreport-upload/internal/repository"
)

// SQLSink writes records through an upload log repository.
type SQLSink struct {
	repo repository.UploadLogRepository
}

func NewSQLSink(repo repository.UploadLogRepository) *SQLSink {
	return &SQLSink{repo: repo}
}

func (s *SQLSink) Record(ctx context.Context, record domain.AuditRecord) error {
	return s.repo.Insert(ctx, &record)
}
