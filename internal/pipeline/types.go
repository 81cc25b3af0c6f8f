package pipeline

import (
	"context"
	"net/http"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
)

// State is a step of one upload invocation.
type State string

const (
	StateParsing           State = "parsing"
	StateLoadingCredential State = "loading_credential"
	StateMinting           State = "minting"
	StateUploading         State = "uploading"
	StateLogging           State = "logging"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// RequestParser extracts the upload from an inbound submission.
type RequestParser interface {
	Parse(r *http.Request) (*domain.UploadRequest, error)
}

// CredentialLoader resolves service-account material, bucket and project.
type CredentialLoader interface {
	Load() (*domain.Credentials, error)
}

// TokenMinter exchanges a signed assertion for a bearer token.
type TokenMinter interface {
	Mint(ctx context.Context, cred *domain.ServiceAccountCredential) (*domain.AccessToken, error)
}

// ObjectUploader stores the payload under the destination key.
type ObjectUploader interface {
	Upload(ctx context.Context, token *domain.AccessToken, bucket string, req *domain.UploadRequest) (*domain.UploadResult, error)
}

// AuditLogger persists one record per stored object.
type AuditLogger interface {
	Record(ctx context.Context, record domain.AuditRecord) error
}

// Outcome is the terminal view of one invocation. Err is the fatal failure,
// if any; AuditErr is set when the upload succeeded but could not be logged.
type Outcome struct {
	State    State
	FailedAt State
	Request  *domain.UploadRequest
	Result   *domain.UploadResult
	Err      error
	AuditErr error
}

// Succeeded reports whether the object was stored.
func (o *Outcome) Succeeded() bool {
	return o.State == StateDone
}
