package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
	"github.com/andresuchdata/roadreport-upload/internal/repository/sqlite"
)

func newSQLiteRepo(t *testing.T) *SQLUploadLogRepository {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewUploadLogRepository(db, "")
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestUploadLogInsertAndList(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"reports/a.png", "reports/b.png", "reports/c.png"} {
		require.NoError(t, repo.Insert(ctx, &domain.AuditRecord{
			ID:         name,
			Filename:   name,
			FileSize:   int64(100 + i),
			FileType:   "image/png",
			UploadURL:  "https://storage.googleapis.com/pothole-images/" + name,
			UploadedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "reports/c.png", records[0].Filename)
	assert.Equal(t, int64(102), records[0].FileSize)
	assert.Equal(t, "https://storage.googleapis.com/pothole-images/reports/c.png", records[0].UploadURL)
	assert.True(t, records[0].UploadedAt.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, "reports/b.png", records[1].Filename)
}

func TestUploadLogEnsureSchemaIsIdempotent(t *testing.T) {
	repo := newSQLiteRepo(t)
	assert.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestUploadLogDuplicateIDFails(t *testing.T) {
	repo := newSQLiteRepo(t)
	rec := &domain.AuditRecord{ID: "same", Filename: "f", UploadURL: "u", UploadedAt: time.Now()}

	require.NoError(t, repo.Insert(context.Background(), rec))
	assert.Error(t, repo.Insert(context.Background(), rec))
}

func TestNewUploadLogRepositoryRejectsBadTable(t *testing.T) {
	_, err := NewUploadLogRepository(nil, "upload_logs; DROP TABLE x")
	assert.Error(t, err)
}
