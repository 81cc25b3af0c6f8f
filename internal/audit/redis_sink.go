package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
)

// RedisSink appends records to a capped Redis stream.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisSink(client *redis.Client, stream string, maxLen int64) *RedisSink {
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisSink) Record(ctx context.Context, record domain.AuditRecord) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: streamValues(record),
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", s.stream, err)
	}
	return nil
}

func streamValues(record domain.AuditRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":          record.ID,
		"filename":    record.Filename,
		"file_size":   strconv.FormatInt(record.FileSize, 10),
		"file_type":   record.FileType,
		"upload_url":  record.UploadURL,
		"uploaded_at": record.UploadedAt.Format(time.RFC3339Nano),
	}
}
