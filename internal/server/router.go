package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/streetlink-backend/internal/handlers"
	"github.com/yungbote/streetlink-backend/internal/middleware"
	"github.com/yungbote/streetlink-backend/internal/utils"
)

type RouterConfig struct {
	AuthMiddleware    *middleware.AuthMiddleware
	TranscribeHandler *handlers.TranscribeHandler
	IndividualHandler *handlers.IndividualHandler
	SearchHandler     *handlers.SearchHandler
	CategoryHandler   *handlers.CategoryHandler
	ExportHandler     *handlers.ExportHandler
	PhotoHandler      *handlers.PhotoHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	origins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", nil), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Ingestion
	protected.POST("/transcribe", cfg.TranscribeHandler.Transcribe)
	// Individuals
	protected.POST("/individuals", cfg.IndividualHandler.Save)
	protected.GET("/individuals/search", cfg.SearchHandler.Search)
	protected.GET("/individuals/:id", cfg.IndividualHandler.GetByID)
	protected.GET("/individuals/:id/interactions", cfg.IndividualHandler.ListInteractions)
	protected.GET("/individuals/:id/placeholder", cfg.IndividualHandler.Placeholder)
	protected.PATCH("/individuals/:id/urgency", cfg.IndividualHandler.SetUrgency)
	// Search facets
	protected.GET("/search/filters", cfg.SearchHandler.FilterOptions)
	// Categories
	protected.GET("/categories", cfg.CategoryHandler.List)
	protected.POST("/categories", cfg.CategoryHandler.Create)
	// Export
	protected.GET("/export", cfg.ExportHandler.ExportCSV)
	// Photos
	protected.POST("/photos/upload", cfg.PhotoHandler.Upload)

	return router
}
