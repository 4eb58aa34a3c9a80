// Package mockbackend is an in-memory stand-in for the VitalArbor backend.
//
// It serves the same /api routes with the same JSON shapes as the hosted
// service: users with bcrypt-hashed passwords, per-user image lists and a
// /diagnose endpoint answering with canned or injected results. The clients
// can be exercised end to end without the real service.
package mockbackend

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/vitalarbor/vitalarbor-go/internal/diagnosis"
	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

const (
	// DefaultListen matches the port the clients target by default.
	DefaultListen = ":3000"

	// DefaultMaxUploadBytes is the per-file limit of the hosted service.
	DefaultMaxUploadBytes = 10 * 1024 * 1024

	// DefaultBcryptCost matches the hosted service's hashing cost.
	DefaultBcryptCost = 12

	// three images plus form fields per /diagnose request
	bodyLimit = "48M"

	shutdownTimeout = 5 * time.Second
)

// DiagnoseInput describes one /diagnose request after validation.
type DiagnoseInput struct {
	Username        string
	UseCutout       bool
	DetectionMethod int
	ImageSizes      map[string]int64 // keyed by form field
}

// AnalyzeFunc produces the results for a /diagnose request.
type AnalyzeFunc func(ctx context.Context, in DiagnoseInput) (diagnosis.Result, error)

// Config configures a Server.
type Config struct {
	Listen         string
	PublicURL      string // base of image URLs returned by /upload
	BcryptCost     int
	MaxUploadBytes int64
	Analyze        AnalyzeFunc
}

// Server is the fake backend. It implements http.Handler.
type Server struct {
	echo   *echo.Echo
	store  *Store
	cfg    Config
	log    logger.Logger
	server *http.Server
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithStore shares an existing store.
func WithStore(st *Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// New builds a Server with its routes registered.
func New(cfg Config, opts ...Option) *Server {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Analyze == nil {
		cfg.Analyze = CannedAnalysis
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("mockbackend")
	}
	if s.store == nil {
		s.store = NewStore(cfg.BcryptCost)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(s.requestLogger())
	s.echo.Use(echomw.BodyLimit(bodyLimit))
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}
			s.log.Info("request", fields...)
			return nil
		},
	})
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health)

	api := s.echo.Group("/api")
	api.POST("/signup", s.signup)
	api.POST("/login", s.login)
	api.POST("/upload", s.upload)
	api.POST("/images", s.images)
	api.POST("/process", s.process)
	api.POST("/diagnose", s.diagnose)

	s.echo.GET("/files/*", s.file)
}

// ServeHTTP lets the server be mounted in httptest or any mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Store exposes the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.cfg.Listen)
	if err != nil {
		return errors.New(err).
			Component("mockbackend").
			Category(errors.CategoryNetwork).
			Context("operation", "listen").
			Context("address", s.cfg.Listen).
			Build()
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.server = &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("mock backend listening", logger.String("address", listener.Addr().String()))
		serveErr <- s.server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("stopping mock backend")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "healthy",
		"users":  s.store.UserCount(),
	})
}
