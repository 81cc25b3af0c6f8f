package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/roadreport-upload/internal/audit"
	"github.com/andresuchdata/roadreport-upload/internal/domain"
	"github.com/andresuchdata/roadreport-upload/internal/metrics"
)

// Orchestrator runs one upload through every stage in order. It holds no
// per-invocation state, so a single value serves concurrent requests.
type Orchestrator struct {
	parser   RequestParser
	loader   CredentialLoader
	minter   TokenMinter
	uploader ObjectUploader
	audit    AuditLogger
	metrics  metrics.Recorder
	now      func() time.Time
}

type Option func(*Orchestrator)

func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.metrics = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator wires the stages. A nil audit logger discards records.
func NewOrchestrator(parser RequestParser, loader CredentialLoader, minter TokenMinter, uploader ObjectUploader, auditLogger AuditLogger, opts ...Option) *Orchestrator {
	if auditLogger == nil {
		auditLogger = audit.Noop()
	}
	o := &Orchestrator{
		parser:   parser,
		loader:   loader,
		minter:   minter,
		uploader: uploader,
		audit:    auditLogger,
		metrics:  (*metrics.Metrics)(nil),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run parses r and executes the upload it carries.
func (o *Orchestrator) Run(ctx context.Context, r *http.Request) *Outcome {
	var req *domain.UploadRequest
	err := o.stage(StateParsing, func() error {
		var err error
		req, err = o.parser.Parse(r)
		return err
	})
	if err != nil {
		return o.fail(&Outcome{}, StateParsing, err)
	}
	return o.Execute(ctx, req)
}

// Execute runs the stages after parsing. Any fatal error short-circuits the
// rest; an audit failure does not.
func (o *Orchestrator) Execute(ctx context.Context, req *domain.UploadRequest) *Outcome {
	out := &Outcome{Request: req}
	logger := log.With().Str("key", req.DestinationKey).Int64("bytes", req.Size).Logger()

	var creds *domain.Credentials
	if err := o.stage(StateLoadingCredential, func() error {
		var err error
		creds, err = o.loader.Load()
		return err
	}); err != nil {
		return o.fail(out, StateLoadingCredential, err)
	}

	var token *domain.AccessToken
	if err := o.stage(StateMinting, func() error {
		var err error
		token, err = o.minter.Mint(ctx, &creds.Account)
		return err
	}); err != nil {
		return o.fail(out, StateMinting, err)
	}
	logger.Debug().Str("token_type", token.TokenType).Msg("Access token minted")

	var result *domain.UploadResult
	if err := o.stage(StateUploading, func() error {
		var err error
		result, err = o.uploader.Upload(ctx, token, creds.Bucket, req)
		return err
	}); err != nil {
		return o.fail(out, StateUploading, err)
	}
	out.Result = result

	if err := o.stage(StateLogging, func() error {
		return o.audit.Record(ctx, audit.NewRecord(req, result, o.now()))
	}); err != nil {
		out.AuditErr = domain.NewError(domain.KindAuditPersistFailure, "Failed to log upload", err)
		o.metrics.RecordAuditFailure()
		logger.Warn().Err(err).Msg("Upload stored but audit record was not persisted")
	}

	out.State = StateDone
	o.metrics.RecordUpload("success", req.Size)
	logger.Info().Str("url", result.URL).Msg("Upload completed")
	return out
}

func (o *Orchestrator) stage(state State, fn func() error) error {
	start := time.Now()
	err := fn()
	o.metrics.ObserveStage(string(state), time.Since(start), err)
	return err
}

func (o *Orchestrator) fail(out *Outcome, at State, err error) *Outcome {
	out.State = StateFailed
	out.FailedAt = at
	out.Err = err

	outcome := "error"
	event := log.Error().Err(err).Str("stage", string(at))
	if out.Request != nil {
		event = event.Str("key", out.Request.DestinationKey)
	}

	var derr *domain.Error
	if errors.As(err, &derr) {
		outcome = string(derr.Kind)
		if derr.Status != 0 {
			event = event.Int("upstream_status", derr.Status).Str("upstream_body", derr.Body)
		}
	}
	event.Msg("Upload failed")

	o.metrics.RecordUpload(outcome, 0)
	return out
}
