// Package api exposes reconciliation and read-only ledger views over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/internal/reporter"
	"ledger-reconciliation-service/pkg/logger"
)

// RequestIDHeader carries the per-request id on every response
const RequestIDHeader = "X-Request-ID"

// Config holds HTTP server settings
type Config struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes caps request bodies; statements are plain text
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8080"},
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    5 << 20,
	}
}

// Validate checks the server configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

// Reconciler runs one reconciliation
type Reconciler interface {
	Reconcile(ctx context.Context, request *reconciler.Request) (*reconciler.Result, error)
}

// Server is the HTTP surface of the service
type Server struct {
	config  *Config
	service Reconciler
	source  ledger.Source
	reports *reporter.ReportConfig
	engine  *gin.Engine
	logger  logger.Logger
}

// NewServer wires the routes. reports supplies the character limit and defaults for rendered output.
func NewServer(config *Config, service Reconciler, source ledger.Source, reports *reporter.ReportConfig) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if service == nil || source == nil {
		return nil, fmt.Errorf("server requires a reconciler and a ledger source")
	}
	if reports == nil {
		reports = reporter.DefaultReportConfig()
	}

	s := &Server{
		config:  config,
		service: service,
		source:  source,
		reports: reports,
		logger:  logger.GetGlobalLogger().WithComponent("api"),
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(s.logger, "/health"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:  s.config.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/health", s.health)

	api := router.Group("/api")
	{
		api.GET("/health", s.health)
		api.POST("/reconcile", s.reconcile)
		api.GET("/budgets", s.listBudgets)
		api.GET("/budgets/:budget_id/accounts", s.listAccounts)
		api.GET("/budgets/:budget_id/transactions/unapproved", s.listUnapproved)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Error: errorDetail{
			Category: "not_found",
			Code:     "route_not_found",
			Message:  fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path),
		}})
	})

	return router
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("port", s.config.Port).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
