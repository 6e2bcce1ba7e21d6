package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"notekeeper/cmd/internal/http/handler"
	"notekeeper/cmd/internal/utils/apierror"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

type HTTPServerConfig struct {
	ListenAddr  string
	BodyLimit   string
	CORSOrigins []string

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

type Server struct {
	cfg    *HTTPServerConfig
	echo   *echo.Echo
	health *handler.DefaultHealthRoute
}

func New(cfg *HTTPServerConfig, notes *handler.DefaultNoteRoute, health *handler.DefaultHealthRoute, auth echo.MiddlewareFunc) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.Level())
	e.HTTPErrorHandler = errorHandler

	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	// Notes
	api := e.Group("/api/notes", auth)
	api.GET("", notes.GetNotes)
	api.POST("", notes.CreateNote)
	api.PUT("/:id", notes.UpdateNote)
	api.DELETE("/:id", notes.DeleteNote)

	// Probes
	e.GET("/health", health.Health)
	e.GET("/livez", health.Livez)
	e.GET("/readyz", health.Readyz)

	return &Server{
		cfg:    cfg,
		echo:   e,
		health: health,
	}
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) RunInBackground() {
	go func() {
		log.Infof("Starting HTTP server on %s", s.cfg.ListenAddr)
		if err := s.echo.Start(s.cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()
}

// Shutdown marks the server as not ready, gives load balancers the drain
// period to notice, then waits for in-flight requests to finish.
func (s *Server) Shutdown() {
	if s.health.Drain() && s.cfg.DrainDuration > 0 {
		log.Infof("Server marked as not ready, draining for %s", s.cfg.DrainDuration)
		time.Sleep(s.cfg.DrainDuration)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		log.Errorf("Graceful HTTP server shutdown failed: %v", err)
	} else {
		log.Info("HTTP server gracefully stopped")
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	})
}

// errorHandler renders framework errors (unknown route, oversized body,
// recovered panics) in the same shape as the API's own errors.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apierr *apierror.APIError
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		apierr = apierror.NewSimple(he.Code, http.StatusText(he.Code))
	} else {
		log.Errorf("unhandled error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		apierr = apierror.InternalServerError
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(apierr.Code())
	} else {
		err = c.JSON(apierr.Code(), apierr)
	}
	if err != nil {
		log.Errorf("failed to write error response: %v", err)
	}
}
