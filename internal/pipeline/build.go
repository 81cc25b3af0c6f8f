package pipeline

import (
	"net/http"

	"github.com/andresuchdata/roadreport-upload/internal/config"
	"github.com/andresuchdata/roadreport-upload/internal/credentials"
	"github.com/andresuchdata/roadreport-upload/internal/storage"
	"github.com/andresuchdata/roadreport-upload/internal/token"
	"github.com/andresuchdata/roadreport-upload/internal/upload"
)

// New wires the production stages for cfg. A nil client means
// http.DefaultClient.
func New(cfg config.GCSConfig, client *http.Client, auditLogger AuditLogger, opts ...Option) *Orchestrator {
	if client == nil {
		client = http.DefaultClient
	}
	return NewOrchestrator(
		upload.NewParser(),
		credentials.NewLoader(cfg),
		token.NewMinter(token.WithHTTPClient(client)),
		storage.NewMediaUploader(cfg, client),
		auditLogger,
		opts...,
	)
}
