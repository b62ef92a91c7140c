// Package web serves the browser front end: a JSON API over the app
// controller, an SSE stream of state changes and the embedded page.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/ghc-desk/ghc/internal/capability"
	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/events"
	"github.com/ghc-desk/ghc/internal/history"
	"github.com/ghc-desk/ghc/internal/logging"
	"github.com/ghc-desk/ghc/internal/service"
	"github.com/ghc-desk/ghc/internal/session"
	"github.com/ghc-desk/ghc/internal/view"
	"github.com/ghc-desk/ghc/internal/web/sse"
)

// Controller is the part of the app the web front end drives.
type Controller interface {
	Snapshot() view.Snapshot
	Session() session.Session
	History() []history.Entry
	Models() []string
	Capability() capability.Status
	Metrics() *service.Metrics
	SessionID() string
	Bus() *events.EventBus

	Submit(ctx context.Context, req service.Request) service.Result
	ToggleAuth(ctx context.Context) error
	Login(ctx context.Context) (core.DeviceLogin, error)
	Logout(ctx context.Context) error
	OpenVerification() error
	SelectFile(path string) service.FileContext
	SelectModel(model string) error
	Copy() error
	ToggleHistory() bool
	OpenBilling() error
	Install(ctx context.Context) (string, error)
	Reload(ctx context.Context) error
}

// Server is the HTTP server for the web UI.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	listener   net.Listener
	config     Config
	logger     *logging.Logger
	ctrl       Controller
	sseHandler *sse.Handler
}

// Config holds the server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	ServeStatic     bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            8765,
		ReadTimeout:     15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		ServeStatic:     true,
	}
}

// New creates a server over ctrl.
func New(cfg Config, ctrl Controller, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		config:     cfg,
		logger:     logger.WithComponent("web"),
		ctrl:       ctrl,
		sseHandler: sse.NewHandler(ctrl.Bus(), ctrl.SessionID()),
	}
	s.router = s.setupRouter()
	// No write timeout: prompt runs and the SSE stream are long-lived.
	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:     s.router,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	if len(s.config.CORSOrigins) > 0 {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		})
		r.Use(corsMiddleware.Handler)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.originGuard)

		r.Get("/state", s.handleState)
		r.Get("/session", s.handleSession)
		r.Get("/history", s.handleHistory)
		r.Post("/history/toggle", s.handleToggleHistory)
		r.Get("/models", s.handleModels)
		r.Put("/model", s.handleSelectModel)
		r.Get("/capability", s.handleCapability)
		r.Get("/metrics", s.handleMetrics)

		r.Post("/prompt", s.handleSubmit)
		r.Put("/file", s.handleSelectFile)
		r.Delete("/file", s.handleClearFile)
		r.Post("/copy", s.handleCopy)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/toggle", s.handleToggleAuth)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Post("/verify", s.handleVerify)
		})

		r.Post("/billing", s.handleBilling)
		r.Post("/install", s.handleInstall)
		r.Post("/reload", s.handleReload)

		r.Get("/sse/events", s.sseHandler.ServeHTTP)
	})

	if s.config.ServeStatic {
		staticHandler, err := StaticHandler()
		if err != nil {
			s.logger.Warn("frontend not available, static file serving disabled", "error", err)
		} else {
			r.NotFound(staticHandler.ServeHTTP)
		}
	}

	return r
}

// originGuard rejects state-changing requests sent by a page from another
// origin. Requests without an Origin header come from non-browser clients
// and pass.
func (s *Server) originGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		origin := r.Header.Get("Origin")
		if origin == "" || s.allowedOrigin(origin, r.Host) {
			next.ServeHTTP(w, r)
			return
		}
		s.logger.Warn("cross-origin request rejected", "origin", origin, "path", r.URL.Path)
		respondError(w, http.StatusForbidden, "cross-origin request rejected")
	})
}

func (s *Server) allowedOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if (u.Scheme == "http" || u.Scheme == "https") && strings.EqualFold(u.Host, host) {
		return true
	}
	for _, o := range s.config.CORSOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	s.logger.Info("starting http server", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Shutdown disconnects SSE clients and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	_ = s.sseHandler.Shutdown(shutdownCtx)
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the underlying chi router.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// URL returns the address to open in a browser.
func (s *Server) URL() string {
	return "http://" + s.Addr() + "/"
}
