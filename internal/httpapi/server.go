// Package httpapi exposes the controller over a small JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/controller"
	"github.com/npratt/reroll/internal/target"
)

// shutdownTimeout bounds graceful shutdown once Serve's context ends.
const shutdownTimeout = 5 * time.Second

// Server serves the HTTP API for one controller.
type Server struct {
	addr      string
	cfg       *config.Config
	ctrl      *controller.Controller
	cat       *catalog.Catalog
	logger    *slog.Logger
	startTime time.Time
}

// NewServer creates a Server listening on addr.
func NewServer(addr string, cfg *config.Config, ctrl *controller.Controller, cat *catalog.Catalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      addr,
		cfg:       cfg,
		ctrl:      ctrl,
		cat:       cat,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)
	api.GET("/catalog", s.handleCatalog)
	api.POST("/runs", s.handleStartRun)
	api.GET("/runs/:id", s.handleGetRun)
	api.POST("/cancel", s.handleCancel)
	return r
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.serve(ctx, listener)
}

func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	s.logger.Info("http api listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("http api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http api: %w", err)
	}
	s.logger.Info("http api stopped")
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).Truncate(time.Second).String(),
		"active": s.ctrl.Active(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Current())
}

func (s *Server) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": s.cat.All()})
}

func (s *Server) handleStartRun(c *gin.Context) {
	var req struct {
		Targets []string `json:"targets"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
	}

	runReq, err := controller.BuildRequest(s.cfg, s.cat, req.Targets)
	if err != nil {
		s.writeError(c, err)
		return
	}
	h, err := s.ctrl.Start(c.Request.Context(), runReq)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": h.ID})
}

func (s *Server) handleGetRun(c *gin.Context) {
	snap, err := s.ctrl.Snapshot(controller.RunHandle{ID: c.Param("id")})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleCancel(c *gin.Context) {
	s.ctrl.RequestCancel()
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

// writeError maps controller and validation errors to status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, controller.ErrRunAlreadyActive):
		status = http.StatusConflict
	case errors.Is(err, controller.ErrUnknownRun):
		status = http.StatusNotFound
	case errors.Is(err, target.ErrInvalidSelection),
		errors.Is(err, catalog.ErrUnknownStat),
		errors.Is(err, controller.ErrInvalidRequest),
		errors.Is(err, config.ErrInvalidConfig):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("http request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
