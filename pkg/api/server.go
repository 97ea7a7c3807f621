package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/itsneelabh/nodemesh/core"
	"github.com/itsneelabh/nodemesh/pkg/discovery"
	"github.com/itsneelabh/nodemesh/pkg/events"
	"github.com/itsneelabh/nodemesh/pkg/logger"
	"github.com/itsneelabh/nodemesh/pkg/network"
	"github.com/itsneelabh/nodemesh/pkg/telemetry"
)

// Server serves the registry API.
type Server struct {
	cfg       *core.Config
	discovery *discovery.Service
	network   *network.Network
	bus       *events.Bus
	logger    logger.Logger

	mux      *http.ServeMux
	upgrader websocket.Upgrader

	mu      sync.Mutex
	server  *http.Server
	closing chan struct{}
	once    sync.Once
}

type Option func(*Server)

func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEventBus enables GET /api/v1/watch.
func WithEventBus(bus *events.Bus) Option {
	return func(s *Server) {
		s.bus = bus
	}
}

// NewServer creates a server over svc and nw. A nil cfg uses core defaults.
func NewServer(cfg *core.Config, svc *discovery.Service, nw *network.Network, opts ...Option) *Server {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	s := &Server{
		cfg:       cfg,
		discovery: svc,
		network:   nw,
		logger:    logger.NoOpLogger{},
		mux:       http.NewServeMux(),
		closing:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.routes()
	return s
}

// checkOrigin admits websocket clients without an Origin header, same-origin
// pages, and, when CORS is enabled, the configured allowed origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	cors := s.cfg.HTTP.CORS
	return cors.Enabled && core.IsOriginAllowed(origin, cors.AllowedOrigins)
}

func (s *Server) routes() {
	p := core.APIPrefix

	s.mux.HandleFunc("POST "+p+"/announce", s.handleAnnounce)
	s.mux.HandleFunc("GET "+p+"/peers", s.handlePeers)
	s.mux.HandleFunc("GET "+p+"/registry", s.handleRegistry)
	s.mux.HandleFunc("POST "+p+"/prune", s.handlePrune)

	s.mux.HandleFunc("GET "+p+"/network/nodes", s.handleListNodes)
	s.mux.HandleFunc("POST "+p+"/network/nodes", s.handleRegisterNode)
	s.mux.HandleFunc("GET "+p+"/network/nodes/{id}", s.handleGetNode)
	s.mux.HandleFunc("GET "+p+"/network/routes", s.handleListRoutes)
	s.mux.HandleFunc("POST "+p+"/network/routes", s.handleConnect)
	s.mux.HandleFunc("GET "+p+"/network/topology", s.handleTopology)
	s.mux.HandleFunc("GET "+p+"/network/capabilities/{name}", s.handleCapability)

	s.mux.HandleFunc("GET "+p+"/watch", s.handleWatch)
	s.mux.HandleFunc("GET "+core.HealthPath, s.handleHealth)
}

// Handler returns the mux wrapped in the middleware chain: tracing,
// correlation IDs, request logging and CORS.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = core.CORSMiddleware(&s.cfg.HTTP.CORS)(h)
	h = core.LoggingMiddleware(s.logger, s.cfg.Development.Enabled)(h)
	h = telemetry.CorrelationMiddleware(h)
	return otelhttp.NewHandler(h, s.cfg.Name,
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != core.HealthPath
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	)
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Address, s.cfg.Port)
	if s.cfg.Address == "" {
		addr = fmt.Sprintf(":%d", s.cfg.Port)
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l and blocks until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	s.server = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.HTTP.ReadTimeout,
		WriteTimeout:   s.cfg.HTTP.WriteTimeout,
		IdleTimeout:    s.cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: s.cfg.HTTP.MaxHeaderBytes,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"address": l.Addr().String(),
		"cors":    s.cfg.HTTP.CORS.Enabled,
		"watch":   s.bus != nil,
	})

	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes watch streams and drains in-flight requests, bounded by
// the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.closing) })

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if s.cfg.HTTP.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.HTTP.ShutdownTimeout)
		defer cancel()
	}

	s.logger.Info("Stopping HTTP server", map[string]interface{}{
		"timeout": s.cfg.HTTP.ShutdownTimeout.String(),
	})
	return srv.Shutdown(ctx)
}

func (s *Server) defaultTTLSeconds() int {
	ttl := s.cfg.Discovery.DefaultTTL
	if ttl <= 0 {
		ttl = core.DefaultAnnouncementTTL
	}
	return int(ttl / time.Second)
}
