package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/pathatlas-backend/internal/http/handlers"
	httpMW "github.com/yungbote/pathatlas-backend/internal/http/middleware"
	"github.com/yungbote/pathatlas-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	TaxonomyHandler *httpH.TaxonomyHandler
	RunHandler      *httpH.RunHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api/v1")
	{
		// Taxonomy (read)
		if cfg.TaxonomyHandler != nil {
			api.GET("/taxonomy/categories", cfg.TaxonomyHandler.ListCategories)
			api.GET("/taxonomy/categories/:id", cfg.TaxonomyHandler.GetCategory)
			api.GET("/taxonomy/tree", cfg.TaxonomyHandler.GetTree)
			api.GET("/taxonomy/items/:id/assignments", cfg.TaxonomyHandler.GetItemAssignments)
		}

		// Runs and verification
		if cfg.RunHandler != nil {
			api.GET("/runs", cfg.RunHandler.ListRuns)
			api.GET("/verification/latest", cfg.RunHandler.LatestVerification)
			api.POST("/runs/curation", cfg.RunHandler.StartCuration)
			api.POST("/runs/verify", cfg.RunHandler.RunVerify)
			api.POST("/runs/sync-links", cfg.RunHandler.RunSyncLinks)
			api.POST("/cache/invalidate", cfg.RunHandler.InvalidateCache)
		}
	}

	return r
}
