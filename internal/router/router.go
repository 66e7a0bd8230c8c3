package router

import (
	"net/http"
	"time"

	"github.com/coursekit/livequiz-backend/internal/config"
	"github.com/coursekit/livequiz-backend/internal/handler"
	"github.com/coursekit/livequiz-backend/internal/middleware"
	"github.com/coursekit/livequiz-backend/internal/response"
	"github.com/coursekit/livequiz-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Presenter *handler.PresenterHandler
	Student   *handler.StudentHandler
	Projector *handler.ProjectorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// The caller owns submitLimiter and stops it on shutdown.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	submitLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "If-Modified-Since", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"Last-Modified", "X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Presenter Group (JWT) ──────────────────────────────────────
	presenterAPI := router.Group("/api/v1/presenter")
	presenterAPI.Use(middleware.RequirePresenterJWT(authService))
	{
		presenterAPI.POST("/sessions", handlers.Presenter.Start)
		presenterAPI.POST("/sessions/:session_id/launch", handlers.Presenter.Launch)
		presenterAPI.POST("/sessions/:session_id/reveal-distribution", handlers.Presenter.RevealDistribution)
		presenterAPI.POST("/sessions/:session_id/reveal-correct", handlers.Presenter.RevealCorrect)
		presenterAPI.POST("/sessions/:session_id/next", handlers.Presenter.Next)
		presenterAPI.POST("/sessions/:session_id/skip", handlers.Presenter.Skip)
		presenterAPI.POST("/sessions/:session_id/close", handlers.Presenter.Close)
		presenterAPI.DELETE("/sessions/:session_id", handlers.Presenter.Delete)
		presenterAPI.GET("/sessions/:session_id/summary", handlers.Presenter.Summary)
		presenterAPI.GET("/sessions/:session_id/results", middleware.NoStore(), handlers.Presenter.Results)
	}

	// ─── 2. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.POST("/sessions/:session_id/join", handlers.Student.Join)
		studentAPI.POST("/sessions/:session_id/answers", submitLimiter.Middleware(), handlers.Student.SubmitAnswer)
		studentAPI.GET("/sessions/:session_id/state", middleware.NoStore(), handlers.Student.State)
	}

	// ─── 3. Projector Group (elevated JWT) ─────────────────────────────
	// The projector view carries the full distribution, so it shares the
	// presenter's authorization level.
	projectorAPI := router.Group("/api/v1/projector")
	projectorAPI.Use(middleware.RequirePresenterJWT(authService))
	{
		projectorAPI.GET("/channels/:channel/results", middleware.NoStore(), handlers.Projector.Results)
	}

	return router
}
