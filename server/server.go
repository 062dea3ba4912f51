// Package server exposes the session manager over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/asklly/asklly/config"
	"github.com/asklly/asklly/internal/profile"
	"github.com/asklly/asklly/metrics"
	"github.com/asklly/asklly/session"
	"github.com/asklly/asklly/store"
)

// Server wires the HTTP API, the session manager and the shared metrics
// exporter together.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Manager *session.Manager
	Metrics *metrics.Exporter

	echoServer *echo.Echo
	// baseCtx outlives individual requests; background thinking runs on it.
	baseCtx context.Context
}

// NewServer loads the agent configuration and assembles the API. The store
// may be nil, which keeps every session ephemeral.
func NewServer(ctx context.Context, pf *profile.Profile, st *store.Store) (*Server, error) {
	cfg, err := config.Load(pf.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load agent config: %w", err)
	}

	exporter := metrics.NewExporter(metrics.DefaultConfig())
	manager := session.NewManager(session.ManagerConfig{
		Config:      cfg,
		Store:       st,
		Metrics:     exporter,
		BraveAPIKey: pf.BraveAPIKey,
		WorkDir:     pf.Data,
	})
	manager.StartReaper(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		Profile:    pf,
		Store:      st,
		Manager:    manager,
		Metrics:    exporter,
		echoServer: e,
		baseCtx:    ctx,
	}
	s.registerRoutes(e)
	return s, nil
}

func (s *Server) registerRoutes(e *echo.Echo) {
	e.GET("/healthz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	g := e.Group("/api/v1")
	g.POST("/sessions", s.createSession)
	g.GET("/sessions/:cid", s.getSession)
	g.DELETE("/sessions/:cid", s.deleteSession)
	g.POST("/sessions/:cid/query", s.postQuery)
	g.GET("/sessions/:cid/answer", s.getAnswer)
}

// Start launches the listener in the background and returns immediately.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start http server", "error", err)
		}
	}()
	return nil
}

// Shutdown drains the HTTP server, closes every session and then the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown http server", "error", err)
	}
	if err := s.Manager.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown session manager", "error", err)
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}
	slog.Info("server stopped properly")
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}
