package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"photocurate/internal/blob"
	"photocurate/internal/models"
	"photocurate/internal/workflow"
)

// multipartOverhead is allowed on top of max_upload_bytes for form framing.
const multipartOverhead = 1 << 20

type Server struct {
	cfg    *models.Config
	router *gin.Engine
	http   *http.Server
	ctrl   *workflow.Controller
	blobs  blob.Store
	logger *zap.Logger
}

func NewServer(cfg *models.Config, ctrl *workflow.Controller, blobs blob.Store, logger *zap.Logger) *Server {
	if strings.HasPrefix(strings.ToLower(cfg.LogMode), "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	s := &Server{
		cfg:    cfg,
		router: r,
		ctrl:   ctrl,
		blobs:  blobs,
		logger: logger.Named("http"),
	}

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(requestLogger(s.logger))
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/files/*key", s.handleGetFile)
	r.HEAD("/files/*key", s.handleHeadFile)

	api := r.Group("/api")
	{
		api.POST("/photos", s.handleUpload)
		api.GET("/photos/:id", s.handleGetPhoto)
		api.POST("/photos/:id/regenerate", s.handleRegenerate)
		api.GET("/photos/:id/preview", s.handlePreview)
		api.GET("/photos/:id/preview/card", s.handlePreviewCard)

		api.GET("/approvals/pending", s.handlePendingApprovals)
		api.POST("/approvals", s.handleApprove)

		api.POST("/publish", s.handlePublish)
	}

	s.http = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	const op = "server.Start"

	s.logger.Info("listening", zap.String("addr", s.cfg.ServerAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	const op = "server.Stop"

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
