package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/roadreport-upload/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Postgres connection string for the audit table",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newTableFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "table",
		Usage:   "Audit table name",
		Value:   "upload_logs",
		EnvVars: []string{"AUDIT_TABLE"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "uploadctl",
		Usage: "Upload files to Cloud Storage and inspect the upload log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload one or more local files through the upload pipeline",
				ArgsUsage: "FILE [FILE...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "filename",
						Usage: "Destination key for a single FILE (used verbatim)",
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Key prefix; each FILE is stored as prefix + base name",
					},
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Content type to declare (default: guessed from the extension)",
					},
				},
				Action: runUpload,
			},
			{
				Name:  "audit",
				Usage: "Manage the upload audit table",
				Subcommands: []*cli.Command{
					{
						Name:   "migrate",
						Usage:  "Create the audit table if it does not exist",
						Flags:  []cli.Flag{newDBURLFlag(), newTableFlag()},
						Action: runMigrate,
					},
					{
						Name:  "list",
						Usage: "Print the most recent audit records",
						Flags: []cli.Flag{
							newDBURLFlag(),
							newTableFlag(),
							&cli.IntFlag{
								Name:  "limit",
								Usage: "Number of records to print",
								Value: 20,
							},
						},
						Action: runList,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
