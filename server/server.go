// Package server hosts the application on echo and translates HTTP traffic
// into listener lifecycle events.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"latke.GO/config"
	"latke.GO/core/auth"
	"latke.GO/core/logging"
	"latke.GO/core/metrics"
	"latke.GO/core/registry"
	"latke.GO/model/repository"
	"latke.GO/servlet"
	"latke.GO/session"
)

const metricsPath = "/metrics"

// Server is the web container around a servlet.Listener.
type Server struct {
	cfg      *config.Config
	echo     *echo.Echo
	listener *servlet.Listener
	tracker  *session.Tracker
	log      *zap.Logger
}

// New builds the echo instance. Routes are added by Start. tracker may be
// nil to disable sessions.
func New(cfg *config.Config, listener *servlet.Listener, tracker *session.Tracker, log *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		echo:     echo.New(),
		listener: listener,
		tracker:  tracker,
		log:      logging.OrNop(log).Named("server"),
	}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			s.log.Debug("Request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Decompress())
	e.Use(middleware.Gzip())
	e.Use(s.lifecycle())

	e.GET(metricsPath, echo.WrapHandler(metrics.Handler()))
	return s
}

// Handler exposes the echo instance, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// lifecycle brackets each request with OnRequestStart and OnRequestEnd.
// Requests arriving outside Running are answered with 503.
func (s *Server) lifecycle() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == metricsPath {
				return next(c)
			}
			start := time.Now()
			req := c.Request()
			ctx := repository.WithRequestScope(registry.WithRequest(req.Context()))
			if rr, ok := registry.FromContext(ctx); ok {
				rr.Set(registry.KeyRequestStart, start)
				rr.Set(registry.KeyRequestID, c.Response().Header().Get(echo.HeaderXRequestID))
			}
			req = req.WithContext(ctx)

			if err := s.listener.OnRequestStart(ctx, req); err != nil {
				if errors.Is(err, servlet.ErrNotRunning) {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "application is not running")
				}
				return err
			}
			metrics.RequestsInFlight.Inc()
			defer func() {
				s.listener.OnRequestEnd(ctx)
				metrics.RequestsInFlight.Dec()
			}()

			c.SetRequest(req)
			c.Response().Before(func() {
				ms := time.Since(start).Milliseconds()
				c.Response().Header().Set("X-Request-Duration-ms", strconv.FormatInt(ms, 10))
			})
			return next(c)
		}
	}
}

// Start fires context start and mounts the dispatch table under the
// configured context path. An empty WEB_ROOT serves from the working
// directory.
func (s *Server) Start(ctx context.Context) error {
	root := s.cfg.WebRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("server: resolve working directory: %w", err)
		}
		root = wd
	}
	host := servlet.StaticHost{Root: root, Path: s.cfg.ContextPath}
	if err := s.listener.OnContextStart(ctx, host); err != nil {
		return err
	}
	g := s.echo.Group(strings.TrimSuffix(s.cfg.ContextPath, "/"))
	if m := auth.Middleware(s.cfg.Auth); m != nil {
		g.Use(m)
	}
	if s.tracker != nil {
		g.Use(s.tracker.Middleware())
	}
	table := s.listener.DispatchTable()
	table.Apply(g)
	s.log.Info("Routes mounted", zap.Int("routes", table.Len()), zap.String("context_path", s.cfg.ContextPath))
	return nil
}

// Run starts the application and serves until ctx is done, then shuts
// down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	addr := ":" + s.cfg.Port

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("Server running", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(sctx)
	})
	return g.Wait()
}

// Shutdown drains in-flight requests, then fires context stop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Server shutting down")
	return errors.Join(s.echo.Shutdown(ctx), s.listener.OnContextStop(ctx))
}
