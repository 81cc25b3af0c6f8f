package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
	"github.com/andresuchdata/roadreport-upload/internal/pipeline"
)

// Runner executes one upload invocation.
type Runner interface {
	Run(ctx context.Context, r *http.Request) *pipeline.Outcome
}

type UploadHandler struct {
	runner Runner
}

func NewUploadHandler(runner Runner) *UploadHandler {
	return &UploadHandler{runner: runner}
}

// UploadResponse is the JSON contract the reporting UI consumes.
type UploadResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

type successBody struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type failureBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// MarshalJSON always writes url and filename on success and only error on
// failure.
func (r UploadResponse) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(successBody{Success: true, URL: r.URL, Filename: r.Filename})
	}
	return json.Marshal(failureBody{Error: r.Error})
}

// Upload handles POST /api/upload-to-gcs
func (h *UploadHandler) Upload(c *gin.Context) {
	outcome := h.runner.Run(c.Request.Context(), c.Request)
	status, body := BuildResponse(outcome)
	c.JSON(status, body)
}

// BuildResponse maps a terminal outcome to status and body. Only the fatal
// error is surfaced; an audit failure leaves the response successful.
func BuildResponse(out *pipeline.Outcome) (int, UploadResponse) {
	if out.Succeeded() && out.Result != nil {
		return http.StatusOK, UploadResponse{
			Success:  true,
			URL:      out.Result.URL,
			Filename: out.Result.Key,
		}
	}

	return http.StatusInternalServerError, UploadResponse{
		Success: false,
		Error:   errorMessage(out.Err),
	}
}

func errorMessage(err error) string {
	if err == nil {
		return "upload failed"
	}
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Message != "" {
		return derr.Message
	}
	return err.Error()
}
