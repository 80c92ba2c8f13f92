package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepdeck/prepdeck-backend/internal/config"
	"github.com/prepdeck/prepdeck-backend/internal/handler"
	"github.com/prepdeck/prepdeck-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Question    *handler.QuestionHandler
	Session     *handler.SessionHandler
	Explanation *handler.ExplanationHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Actor", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Content Store ──────────────────────────────────────────────
	questions := router.Group("/api/v1/questions")
	{
		questions.POST("", handlers.Question.CreateQuestion)
		questions.POST("/bulk", handlers.Question.BulkCreate)
		questions.GET("/:id", handlers.Question.GetQuestion)
		questions.PUT("/:id", handlers.Question.UpdateQuestion)
		questions.DELETE("/:id", handlers.Question.DeleteQuestion)
		questions.POST("/:id/explanations", handlers.Explanation.Explain)
	}

	router.GET("/api/v1/exams/:exam_id/questions", handlers.Question.ListByExam)
	router.POST("/api/v1/question-versions/:version_id/explanations/lookup", handlers.Explanation.GetByVersion)

	// ─── 2. Practice Sessions ──────────────────────────────────────────
	sessions := router.Group("/api/v1/sessions")
	{
		sessions.POST("", handlers.Session.StartSession)
		sessions.GET("/:id", handlers.Session.GetSession)
		sessions.POST("/:id/questions/:question_id/progress", handlers.Session.RecordProgress)
		sessions.POST("/:id/advance", handlers.Session.Advance)
		sessions.POST("/:id/flag", handlers.Session.ToggleFlag)
		sessions.POST("/:id/bookmark", handlers.Session.ToggleBookmark)
		sessions.POST("/:id/remaining", handlers.Session.UpdateRemaining)
		sessions.POST("/:id/complete", handlers.Session.Complete)
		sessions.POST("/:id/abandon", handlers.Session.Abandon)
		sessions.POST("/:id/expire", handlers.Session.Expire)
		sessions.POST("/:id/explanations", handlers.Explanation.LinkToSession)
	}

	// ─── 3. Explanation Cache ──────────────────────────────────────────
	explanations := router.Group("/api/v1/explanations")
	{
		explanations.GET("", handlers.Explanation.ListRecent)
		explanations.GET("/totals", handlers.Explanation.Totals)
		explanations.GET("/totals/daily", handlers.Explanation.DailyTotals)
	}

	return router
}
