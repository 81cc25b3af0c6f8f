package audit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/roadreport-upload/internal/cache"
	"github.com/andresuchdata/roadreport-upload/internal/config"
	"github.com/andresuchdata/roadreport-upload/internal/repository"
	"github.com/andresuchdata/roadreport-upload/internal/repository/postgres"
	"github.com/andresuchdata/roadreport-upload/internal/repository/sqlite"
)

const (
	SinkSupabase = "supabase"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
	SinkRedis    = "redis"
	SinkNone     = "none"
)

func noopClose() error { return nil }

// New builds the sink selected by cfg.Audit.Sink. Construction errors never
// fail startup: the returned Logger then reports the error on every write.
// The close func releases whatever connection the sink holds.
func New(ctx context.Context, cfg *config.Config, client *http.Client) (Logger, func() error) {
	logger, closeFn, err := build(ctx, cfg, client)
	if err != nil {
		log.Error().Err(err).Str("sink", cfg.Audit.Sink).Msg("Audit sink unavailable, uploads will not be logged")
		return Failing(fmt.Errorf("audit sink %q unavailable: %w", cfg.Audit.Sink, err)), noopClose
	}

	log.Info().Str("sink", cfg.Audit.Sink).Msg("Audit sink ready")
	return logger, closeFn
}

func build(ctx context.Context, cfg *config.Config, client *http.Client) (Logger, func() error, error) {
	table := cfg.Audit.Table
	if table == "" {
		table = repository.DefaultUploadLogTable
	}

	switch cfg.Audit.Sink {
	case SinkSupabase, "":
		sink, err := NewSupabaseSink(cfg.Audit.SupabaseURL, cfg.Audit.SupabaseServiceRoleKey, table, client)
		if err != nil {
			return nil, nil, err
		}
		return sink, noopClose, nil

	case SinkPostgres:
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo, err := repository.NewUploadLogRepository(db.DB, table)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLSink(repo), db.Close, nil

	case SinkSQLite:
		db, err := sqlite.Open(cfg.Audit.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		repo, err := repository.NewUploadLogRepository(db, table)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewSQLSink(repo), db.Close, nil

	case SinkRedis:
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisSink(rdb, table, cfg.Cache.StreamMaxLen), rdb.Close, nil

	case SinkNone:
		return Noop(), noopClose, nil

	default:
		return nil, nil, fmt.Errorf("unknown audit sink %q", cfg.Audit.Sink)
	}
}
