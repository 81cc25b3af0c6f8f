// Package storage sends upload payloads to object storage.
package storage

import (
	"context"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
)

// Uploader stores one payload under the request's destination key. The token
// is used for this call only.
type Uploader interface {
	Upload(ctx context.Context, token *domain.AccessToken, bucket string, req *domain.UploadRequest) (*domain.UploadResult, error)
}

// DefaultContentType is sent when the submission declared none.
const DefaultContentType = "application/octet-stream"
