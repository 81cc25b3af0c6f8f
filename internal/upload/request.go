// Package upload turns an incoming multipart submission into a
// domain.UploadRequest.
package upload

import (
	"fmt"
	"io"
	"net/http"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
)

const (
	defaultMultipartMemory = 32 << 20 // 32 MiB, larger parts spill to disk

	FileField     = "file"
	FilenameField = "filename"
)

// Parser extracts the file part and destination key. It applies no size
// limit and leaves the key exactly as the caller sent it.
type Parser struct {
	maxMemory int64
}

func NewParser() *Parser {
	return &Parser{maxMemory: defaultMultipartMemory}
}

// Parse reads the whole file part into memory.
func (p *Parser) Parse(r *http.Request) (*domain.UploadRequest, error) {
	if err := r.ParseMultipartForm(p.maxMemory); err != nil {
		return nil, domain.NewError(domain.KindMissingFile, "No file provided", err)
	}

	file, header, err := r.FormFile(FileField)
	if err != nil {
		return nil, domain.NewError(domain.KindMissingFile, "No file provided", nil)
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, domain.NewError(domain.KindMissingFile, "No file provided",
			fmt.Errorf("read file part: %w", err))
	}

	key := header.Filename
	if values := r.MultipartForm.Value[FilenameField]; len(values) > 0 && values[0] != "" {
		key = values[0]
	}

	return &domain.UploadRequest{
		Payload:        payload,
		DestinationKey: key,
		ContentType:    header.Header.Get("Content-Type"),
		Size:           int64(len(payload)),
		ClientFilename: header.Filename,
	}, nil
}
