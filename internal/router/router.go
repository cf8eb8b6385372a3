package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/handler"
	"github.com/quizforge/quizforge-backend/internal/metrics"
	"github.com/quizforge/quizforge-backend/internal/middleware"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Quiz      *handler.QuizHandler
	Question  *handler.QuestionHandler
	Session   *handler.SessionHandler
	Dashboard *handler.DashboardHandler
	Monitor   *handler.MonitorHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Record Prometheus counters and latency per matched route.
	router.Use(metrics.Middleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check and Prometheus scrape endpoint.
	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", metrics.Handler())

	// Rate limiters. Auth and join are per-IP brute-force guards; the
	// generation limiter keeps a single host from monopolizing the
	// upstream text generator.
	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	joinLimiter := middleware.NewRateLimiter(60, time.Minute)
	generateLimiter := middleware.NewRateLimiter(5, time.Minute)

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1")
	{
		publicAPI.POST("/sessions/join", joinLimiter.Middleware(), handlers.Session.JoinSession)
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile route
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Host Group (JWT) ───────────────────────────────────────────
	hostAPI := router.Group("/api/v1")
	hostAPI.Use(
		middleware.RequireJWT(authService),
		middleware.NoStore(),
	)
	{
		// Quiz management
		hostAPI.GET("/quizzes", handlers.Quiz.ListQuizzes)
		hostAPI.POST("/quizzes", handlers.Quiz.CreateQuiz)
		hostAPI.POST("/quizzes/generate", generateLimiter.Middleware(), handlers.Quiz.GenerateQuiz)
		hostAPI.GET("/quizzes/:quiz_id", handlers.Quiz.GetQuiz)
		hostAPI.PATCH("/quizzes/:quiz_id", handlers.Quiz.UpdateQuiz)
		hostAPI.DELETE("/quizzes/:quiz_id", handlers.Quiz.DeleteQuiz)
		hostAPI.POST("/quizzes/:quiz_id/publish", handlers.Quiz.PublishQuiz)

		// Question management
		hostAPI.GET("/quizzes/:quiz_id/questions", handlers.Question.ListQuestions)
		hostAPI.POST("/quizzes/:quiz_id/questions", handlers.Question.AddQuestion)
		hostAPI.PUT("/quizzes/:quiz_id/questions", handlers.Question.ReplaceQuestions)

		// Session hosting
		hostAPI.POST("/quizzes/:quiz_id/host", handlers.Session.HostQuiz)
		hostAPI.GET("/quizzes/:quiz_id/sessions", handlers.Session.ListQuizSessions)
		hostAPI.GET("/sessions", handlers.Session.ListMySessions)
		hostAPI.GET("/sessions/:session_id", handlers.Session.GetSession)

		// Dashboard
		hostAPI.GET("/dashboard", handlers.Dashboard.GetDashboard)

		// System Monitoring
		hostAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	// ─── 3. WebSocket Group (WS Auth) ──────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/sessions/:session_id/monitor", handlers.Monitor.MonitorSession)
	}

	return router
}
