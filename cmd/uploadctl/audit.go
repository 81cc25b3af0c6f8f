package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/roadreport-upload/internal/repository"
)

func openRepository(c *cli.Context) (*repository.SQLUploadLogRepository, func() error, error) {
	db, err := sqlx.Connect("pgx", c.String("db-url"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo, err := repository.NewUploadLogRepository(db, c.String("table"))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db.Close, nil
}

func runMigrate(c *cli.Context) error {
	repo, closeDB, err := openRepository(c)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := repo.EnsureSchema(c.Context); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "audit table %s is ready\n", c.String("table"))
	return nil
}

func runList(c *cli.Context) error {
	repo, closeDB, err := openRepository(c)
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := repo.ListRecent(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UPLOADED AT\tSIZE\tTYPE\tFILENAME\tURL")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			r.UploadedAt.UTC().Format(time.RFC3339), r.FileSize, r.FileType, r.Filename, r.UploadURL)
	}
	return tw.Flush()
}
