package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
)

const maxSupabaseResponseBody = int64(1 << 20) // 1 MiB

// SupabaseSink inserts records through the PostgREST endpoint of a Supabase
// project, authenticating with the service role key.
type SupabaseSink struct {
	client   *http.Client
	endpoint string
	key      string
}

// supabaseRow leaves id to the table default.
type supabaseRow struct {
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"`
	UploadURL  string    `json:"upload_url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func NewSupabaseSink(baseURL, serviceRoleKey, table string, client *http.Client) (*SupabaseSink, error) {
	if baseURL == "" || serviceRoleKey == "" {
		return nil, fmt.Errorf("supabase audit sink requires SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SupabaseSink{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "/rest/v1/" + table,
		key:      serviceRoleKey,
	}, nil
}

func (s *SupabaseSink) Record(ctx context.Context, record domain.AuditRecord) error {
	payload, err := json.Marshal(supabaseRow{
		Filename:   record.Filename,
		FileSize:   record.FileSize,
		FileType:   record.FileType,
		UploadURL:  record.UploadURL,
		UploadedAt: record.UploadedAt,
	})
	if err != nil {
		return fmt.Errorf("encode upload log: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build supabase request: %w", err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase insert: %w", err)
	}
	defer resp.Body.Close()
	resp.Body = io.NopCloser(io.LimitReader(resp.Body, maxSupabaseResponseBody))

	if err := googleapi.CheckResponse(resp); err != nil {
		return fmt.Errorf("supabase insert: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
