// Package server exposes the panel controller over HTTP so a web front end
// can drive the same core as the terminal panel.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/brightfame/towerctl/internal/panel"
	"github.com/brightfame/towerctl/internal/reconciler"
	"github.com/brightfame/towerctl/internal/watchconfig"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Controller is the subset of panel.Controller the handlers use.
type Controller interface {
	Snapshot() reconciler.Snapshot
	Status() panel.Status
	Refresh(ctx context.Context) (reconciler.Snapshot, error)
	Start(ctx context.Context, cfg watchconfig.StartConfiguration) ([]string, error)
	Stop(ctx context.Context) error
	Logs(n int) []string
	Daemon() watchconfig.Daemon
}

// Options configures the HTTP backend.
type Options struct {
	Addr           string
	AllowedOrigins []string
	Version        string
}

// Server serves the panel API.
type Server struct {
	ctrl    Controller
	opts    Options
	handler *gin.Engine
}

// New builds the gin engine and registers all routes.
func New(ctrl Controller, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(requestID(), accessLog(), recovery())

	corsCfg := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = opts.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, requestIDHeader)
	corsCfg.ExposeHeaders = []string{requestIDHeader}
	engine.Use(cors.New(corsCfg))

	s := &Server{ctrl: ctrl, opts: opts, handler: engine}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handler.GET("/health", s.health)
	s.handler.GET("/version", s.version)

	v1 := s.handler.Group("/api/v1")
	{
		v1.GET("/status", s.status)
		v1.GET("/containers", s.containers)
		v1.POST("/start", s.start)
		v1.POST("/stop", s.stop)
		v1.GET("/logs", s.logs)
		v1.POST("/parse", s.parse)
	}
}

// Handler returns the http.Handler serving the API.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http backend listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("http backend stopped")
	return nil
}
