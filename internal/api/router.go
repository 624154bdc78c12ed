package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/auth"
	"github.com/strata-blog-api/internal/metrics"
	"github.com/strata-blog-api/internal/service"
)

const serviceName = "strata-blog-api"

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the non-service collaborators of the router
type Deps struct {
	Tokens   auth.TokenParser
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   HealthChecker
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, deps Deps, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Middleware. Recovery sits inside logging and metrics so a panic is still
	// logged and counted as a 500.
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(metricsMiddleware(deps.Metrics))
	router.Use(recoveryMiddleware(log))
	router.Use(corsMiddleware())

	router.NoRoute(func(c *gin.Context) { writeNotFound(c) })
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Detail: "Method not allowed."})
	})

	// Ops
	router.GET("/health", healthCheck(deps.Health))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Handlers
	postHandler := NewPostHandler(services, log)
	userHandler := NewUserHandler(services, log)

	// Public reads never look at the caller, so a stale token does not block them
	public := router.Group("/posts")
	{
		public.GET("", postHandler.List)
		public.GET("/:id", postHandler.Retrieve)
	}

	authenticated := router.Group("")
	if deps.Tokens != nil {
		authenticated.Use(auth.Middleware(deps.Tokens, func(c *gin.Context, err error) {
			log.Debug().Err(err).Msg("Rejected bearer token")
			writeError(c, log, authError(err))
		}))
	}

	posts := authenticated.Group("/posts")
	{
		posts.POST("", postHandler.Create)
		posts.PATCH("/:id", postHandler.Update)
		posts.PUT("/:id", postHandler.Update)
		posts.DELETE("/:id", postHandler.Delete)
		posts.POST("/:id/comments", postHandler.AppendComment)
		posts.POST("/:id/add_comment", postHandler.AppendComment)
	}

	users := authenticated.Group("/users")
	{
		users.GET("/me", userHandler.Me)
		users.PATCH("/me", userHandler.UpdateMe)
	}

	return router
}

// healthCheck reports liveness and database reachability
func healthCheck(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if checker != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := checker.HealthCheck(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   serviceName,
		})
	}
}
