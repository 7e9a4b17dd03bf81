// Package httpserver runs the echo instance that serves the v2 API.
package httpserver

import (
	"context"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	api "github.com/microtrax/microtrax/internal/api/v2"
	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/errors"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/notification"
	"github.com/microtrax/microtrax/internal/observability"
	"github.com/microtrax/microtrax/internal/settings"
	"github.com/microtrax/microtrax/internal/transactions"
)

// Server owns the echo instance and the API controller mounted on it.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings

	api   *api.Controller
	log   logger.Logger
	errCh chan error
}

// Deps are the services the API controller is built from.
type Deps struct {
	Settings     *settings.Service
	Transactions *transactions.Service
	Manager      *notification.Manager
	Metrics      *observability.Metrics
}

// New builds the server and registers the API routes. It does not listen
// until Start is called.
func New(cfg *conf.Settings, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.WebServer.Debug
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.Use(middleware.RequestID())

	var opts []api.Option
	if deps.Metrics != nil {
		opts = append(opts, api.WithMetrics(deps.Metrics))
	}

	return &Server{
		Echo:     e,
		Settings: cfg,
		api:      api.New(e, cfg, deps.Settings, deps.Transactions, deps.Manager, opts...),
		log:      logger.Global().Module("httpserver"),
		errCh:    make(chan error, 1),
	}
}

// Start begins serving in a background goroutine and returns immediately.
// A listener failure is delivered on Errors.
func (s *Server) Start() {
	addr := s.Settings.WebServer.Listen
	if addr == "" {
		addr = ":8080"
	}

	go func() {
		s.log.Info("starting HTTP server", logger.String("listen", addr))
		if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- errors.New(err).
				Component("httpserver").
				Category(errors.CategoryNetwork).
				Context("listen", addr).
				Build()
		}
		close(s.errCh)
	}()
}

// Errors yields at most one error when the listener stops unexpectedly.
// It is closed once the server has stopped.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Addr returns the bound address once the listener is up, or nil.
func (s *Server) Addr() net.Addr {
	return s.Echo.ListenerAddr()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.Echo.Shutdown(ctx)
}

// APIController returns the v2 API controller.
func (s *Server) APIController() *api.Controller {
	return s.api
}
