package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	storagev1 "google.golang.org/api/storage/v1"

	"github.com/andresuchdata/roadreport-upload/internal/config"
	"github.com/andresuchdata/roadreport-upload/internal/domain"
)

const (
	maxObjectResponseBody = int64(1 << 20) // 1 MiB
	uploadErrorMessage    = "Upload failed"
)

// MediaUploader uploads through the Cloud Storage JSON API's single-request
// media endpoint. The object is sent whole, without chunking.
type MediaUploader struct {
	client         *http.Client
	uploadBaseURL  string
	storageBaseURL string
}

// NewMediaUploader builds an uploader for the endpoints in cfg. A nil client
// means http.DefaultClient.
func NewMediaUploader(cfg config.GCSConfig, client *http.Client) *MediaUploader {
	if client == nil {
		client = http.DefaultClient
	}

	uploadBase := strings.TrimSpace(cfg.UploadBaseURL)
	if uploadBase == "" {
		uploadBase = config.DefaultUploadBaseURL
	}
	storageBase := strings.TrimSpace(cfg.StorageBaseURL)
	if storageBase == "" {
		storageBase = config.DefaultStorageBaseURL
	}

	return &MediaUploader{
		client:         client,
		uploadBaseURL:  strings.TrimSuffix(uploadBase, "/"),
		storageBaseURL: strings.TrimSuffix(storageBase, "/"),
	}
}

// Upload sends req.Payload to bucket under req.DestinationKey.
func (u *MediaUploader) Upload(ctx context.Context, token *domain.AccessToken, bucket string, req *domain.UploadRequest) (*domain.UploadResult, error) {
	contentType := req.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.mediaURL(bucket, req.DestinationKey), bytes.NewReader(req.Payload))
	if err != nil {
		return nil, domain.NewError(domain.KindUploadFailed, uploadErrorMessage, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token.Value)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewError(domain.KindUploadFailed, uploadErrorMessage, err)
	}
	defer resp.Body.Close()
	resp.Body = io.NopCloser(io.LimitReader(resp.Body, maxObjectResponseBody))

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, uploadError(err, req.DestinationKey)
	}

	result := &domain.UploadResult{
		URL:    u.PublicURL(bucket, req.DestinationKey),
		Key:    req.DestinationKey,
		Bucket: bucket,
		Size:   req.Size,
	}

	// The status already confirms the write; the object resource is only
	// used to enrich the result.
	var obj storagev1.Object
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxObjectResponseBody)).Decode(&obj); err != nil {
		log.Warn().Err(err).Str("key", req.DestinationKey).Msg("could not decode object resource")
		return result, nil
	}
	result.Generation = obj.Generation

	log.Info().
		Str("bucket", bucket).
		Str("object", obj.Name).
		Uint64("size", obj.Size).
		Msg("file uploaded")

	return result, nil
}

// PublicURL derives the object's public address. The key is not escaped, so
// it matches the caller-supplied value byte for byte.
func (u *MediaUploader) PublicURL(bucket, key string) string {
	return u.storageBaseURL + "/" + bucket + "/" + key
}

func (u *MediaUploader) mediaURL(bucket, key string) string {
	query := url.Values{
		"uploadType": {"media"},
		"name":       {key},
	}
	return fmt.Sprintf("%s/b/%s/o?%s", u.uploadBaseURL, url.PathEscape(bucket), query.Encode())
}

func uploadError(err error, key string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		log.Error().
			Int("status", gerr.Code).
			Str("key", key).
			Str("body", gerr.Body).
			Msg("upload rejected")
		return domain.NewHTTPError(domain.KindUploadFailed, uploadErrorMessage, gerr.Code, gerr.Body)
	}
	return domain.NewError(domain.KindUploadFailed, uploadErrorMessage, err)
}

var _ Uploader = (*MediaUploader)(nil)
