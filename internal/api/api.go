package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/roadreport-upload/internal/api/handlers"
	"github.com/andresuchdata/roadreport-upload/internal/api/middleware"
)

const (
	UploadPath      = "/api/upload-to-gcs"
	UploadAliasPath = "/api/v1/upload"
)

type Services struct {
	Uploads handlers.Runner
	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

func NewRouter(services *Services) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services == nil {
		return router
	}

	if services.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(services.Gatherer, promhttp.HandlerOpts{})))
	}

	if services.Uploads != nil {
		uploadHandler := handlers.NewUploadHandler(services.Uploads)
		router.POST(UploadPath, uploadHandler.Upload)
		router.POST(UploadAliasPath, uploadHandler.Upload)
	}

	return router
}
