// Package server implements the HTTP surface of the execution engine: run
// invocation, the inbound webhook endpoint, health, and metrics.
package server

import (
	"log/slog"
	"net/http"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	engmod "github.com/hexaflow/engine"
	"github.com/hexaflow/engine/internal/config"
	"github.com/hexaflow/engine/internal/engine"
	"github.com/hexaflow/engine/pkg/api"
)

// Server exposes the engine over HTTP
type Server struct {
	cfg     *config.Config
	runner  *engine.Runner
	source  *engine.MemorySource
	timers  *engine.TimerAdapter
	metrics *Metrics
}

// NewServer creates the HTTP API server
func NewServer(
	cfg *config.Config, runner *engine.Runner, source *engine.MemorySource,
	timers *engine.TimerAdapter, metrics *Metrics,
) *Server {
	return &Server{
		cfg:     cfg,
		runner:  runner,
		source:  source,
		timers:  timers,
		metrics: metrics,
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization, X-Webhook-Secret, "+
				"X-Webhook-Signature",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/run", s.handleRun)
	router.POST("/hooks/:tenantID", s.handleWebhook)

	router.POST("/graphs", s.deployGraph)
	router.DELETE("/graphs/:tenantID/:graphID", s.undeployGraph)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: engmod.Name,
		Version: engmod.Version,
		Status:  "healthy",
	})
}
