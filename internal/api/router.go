package api

import (
	"github.com/Conceptual-Machines/choreo-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/choreo-api/internal/api/middleware"
	"github.com/Conceptual-Machines/choreo-api/internal/config"
	"github.com/Conceptual-Machines/choreo-api/internal/vocabulary"
	"github.com/gin-gonic/gin"
)

// Dependencies are the collaborators the router hands to its handlers
type Dependencies struct {
	Service      handlers.ChoreographyService
	Vocabulary   *vocabulary.Table
	Recorder     apimiddleware.APIRecorder
	OracleModel  string
	AnalyzerName string
}

func SetupRouter(cfg *config.Config, deps Dependencies, version string) *gin.Engine {
	router := gin.New()

	// Request tracking first so the request ID exists when a panic is recovered
	router.Use(apimiddleware.RequestTracking(deps.Recorder))

	// Recovery must wrap the Sentry middleware, which re-panics
	router.Use(apimiddleware.RecoverWithSentry())
	router.Use(apimiddleware.SentryMiddleware())

	router.Use(apimiddleware.CORS())

	healthHandler := handlers.NewHealthHandler(deps.OracleModel, deps.AnalyzerName)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(version, deps.OracleModel, len(deps.Vocabulary.Styles()))
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	v1 := router.Group("/api/v1")
	{
		vocabularyHandler := handlers.NewVocabularyHandler(deps.Vocabulary)
		v1.GET("/vocabulary", vocabularyHandler.GetVocabulary)

		choreographyHandler := handlers.NewChoreographyHandler(deps.Service, cfg.MaxUploadBytes)
		v1.POST("/choreography", choreographyHandler.Generate)
		v1.POST("/choreography/upload", choreographyHandler.Upload)
		v1.POST("/choreography/batch", choreographyHandler.Batch)
		v1.POST("/choreography/stream", choreographyHandler.Stream)
	}

	return router
}
