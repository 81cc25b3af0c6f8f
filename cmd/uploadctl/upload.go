package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/roadreport-upload/internal/api/handlers"
	"github.com/andresuchdata/roadreport-upload/internal/audit"
	"github.com/andresuchdata/roadreport-upload/internal/config"
	"github.com/andresuchdata/roadreport-upload/internal/domain"
	"github.com/andresuchdata/roadreport-upload/internal/pipeline"
)

// executor is the part of the orchestrator the command needs.
type executor interface {
	Execute(ctx context.Context, req *domain.UploadRequest) *pipeline.Outcome
}

type fileResult struct {
	File     string `json:"file"`
	Success  bool   `json:"success"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newFileResult(path string, resp handlers.UploadResponse) fileResult {
	return fileResult{
		File:     path,
		Success:  resp.Success,
		URL:      resp.URL,
		Filename: resp.Filename,
		Error:    resp.Error,
	}
}

func runUpload(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return cli.Exit("at least one FILE is required", 2)
	}

	keys, err := destinationKeys(files, c.String("filename"), c.String("prefix"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	cfg := config.Load()
	auditLogger, closeAudit := audit.New(c.Context, cfg, http.DefaultClient)
	defer closeAudit()

	orch := pipeline.New(cfg.GCS, http.DefaultClient, auditLogger)
	results, failed := uploadFiles(c.Context, orch, files, keys, c.String("content-type"))

	if err := printJSON(c.App.Writer, results); err != nil {
		return err
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d uploads failed", failed, len(files)), 1)
	}
	return nil
}

// destinationKeys resolves one key per file. --filename applies only to a
// single file; several files need --prefix.
func destinationKeys(files []string, filename, prefix string) ([]string, error) {
	if filename != "" {
		if len(files) != 1 {
			return nil, fmt.Errorf("--filename takes exactly one FILE, got %d", len(files))
		}
		return []string{filename}, nil
	}
	if len(files) > 1 && prefix == "" {
		return nil, fmt.Errorf("uploading %d files requires --prefix", len(files))
	}

	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = prefix + filepath.Base(f)
	}
	return keys, nil
}

// uploadFiles runs every file as its own invocation, concurrently. A failed
// upload does not cancel the others.
func uploadFiles(ctx context.Context, exec executor, files, keys []string, contentType string) ([]fileResult, int) {
	results := make([]fileResult, len(files))
	var g errgroup.Group

	for i := range files {
		i := i
		g.Go(func() error {
			results[i] = uploadFile(ctx, exec, files[i], keys[i], contentType)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	return results, failed
}

func uploadFile(ctx context.Context, exec executor, path, key, contentType string) fileResult {
	req, err := readUploadRequest(path, key, contentType)
	if err != nil {
		return fileResult{File: path, Error: err.Error()}
	}

	_, resp := handlers.BuildResponse(exec.Execute(ctx, req))
	return newFileResult(path, resp)
}

func readUploadRequest(path, key, contentType string) (*domain.UploadRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewError(domain.KindMissingFile, "No file provided", err)
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.NewError(domain.KindMissingFile, "No file provided", err)
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(path))
	}

	return &domain.UploadRequest{
		Payload:        payload,
		DestinationKey: key,
		ContentType:    contentType,
		Size:           int64(len(payload)),
		ClientFilename: filepath.Base(path),
	}, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
