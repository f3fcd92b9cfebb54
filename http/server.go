package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrimet-io/telemetry-api/config"
	"github.com/agrimet-io/telemetry-api/db"
)

// Store is the storage surface the API consumes. *db.Store satisfies it; tests
// substitute a stub.
type Store interface {
	CreateReading(ctx context.Context, n db.NewReading) (*db.WeatherReading, error)
	GetReading(ctx context.Context, id int64) (*db.WeatherReading, error)
	UpdateReading(ctx context.Context, id int64, p db.ReadingPatch) (*db.WeatherReading, error)
	DeleteReading(ctx context.Context, id int64) (bool, error)
	RangeReadings(ctx context.Context, q db.ReadingQuery) (*db.ReadingPage, error)
	BucketedReadings(ctx context.Context, q db.ReadingQuery) (*db.BucketPage, error)

	GetUser(ctx context.Context, username string) (*db.User, error)
	CreateAPIKey(ctx context.Context, label string) (*db.APIKey, string, error)
	ListAPIKeys(ctx context.Context) ([]db.APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) (bool, error)
	LookupAPIKey(ctx context.Context, secret string) (*db.APIKey, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg    config.Config
	store  Store
	logger *slog.Logger
	engine *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, store Store, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(corsMiddleware())

	server := &Server{cfg: cfg, store: store, logger: logger, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := s.engine.Group("/auth")
	auth.POST("/login", s.handleLogin)

	keys := auth.Group("/keys")
	keys.Use(jwtAuthMiddleware(s.cfg.JWTSecret))
	keys.POST("", s.handleCreateKey)
	keys.GET("", s.handleListKeys)
	keys.DELETE("/:id", s.handleRevokeKey)

	weather := s.engine.Group("/weather")
	weather.Use(apiKeyMiddleware(s.store, s.logger))
	weather.POST("", s.handleCreateReading)
	weather.GET("/:id", s.handleGetReading)
	weather.PUT("/:id", s.handleUpdateReading)
	weather.DELETE("/:id", s.handleDeleteReading)
	weather.GET("/from-date/:date", s.handleRangeByDate)
	weather.GET("/by-five-minute/:date", s.handleBucketedByDate)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
