package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"compliance/config"
	"compliance/internal/domain"
	"compliance/internal/telemetry"
)

const Title = "Pilot Compliance AI System"

// Ingester replaces the rule collection from a rulebook file.
type Ingester interface {
	Ingest(ctx context.Context, path string) (*domain.IngestResult, error)
}

// Checker answers one compliance request.
type Checker interface {
	Check(ctx context.Context, req domain.CheckRequest) (domain.ComplianceReport, error)
}

// Server exposes ingestion and compliance checking over HTTP.
type Server struct {
	cfg     config.ServerConfig
	tempDir string
	ingest  Ingester
	check   Checker
	logger  *slog.Logger
}

func New(cfg config.ServerConfig, tempDir string, ingest Ingester, check Checker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		tempDir: tempDir,
		ingest:  ingest,
		check:   check,
		logger:  logger,
	}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Mode != "" {
		gin.SetMode(s.cfg.Mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(telemetry.ServiceName))
	router.Use(RequestID())
	router.Use(RequestLogger(s.logger))

	corsConfig := cors.DefaultConfig()
	if len(s.cfg.CORSOrigins) == 0 || (len(s.cfg.CORSOrigins) == 1 && s.cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/health", s.health)

	limit := BodyLimit(s.cfg.MaxUploadMB << 20)

	v1 := router.Group("/api/v1")
	v1.POST("/admin/embed-rules", limit, s.embedRules)
	v1.POST("/compliance/check-compliance", limit, s.checkCompliance)

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.cfg.Addr, "title", Title)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": Title, "timestamp": time.Now()})
}
