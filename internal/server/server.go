// ABOUTME: Server wires the admin together and owns the process lifecycle
// ABOUTME: Session store, backend client, HTTP listener (TCP or tailnet), metrics, and shutdown

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/stellara/stellara-admin/internal/backend"
	"github.com/stellara/stellara-admin/internal/catalog"
	"github.com/stellara/stellara-admin/internal/config"
	"github.com/stellara/stellara-admin/internal/session"
	"github.com/stellara/stellara-admin/internal/store"
	"github.com/stellara/stellara-admin/internal/submit"
	"github.com/stellara/stellara-admin/internal/webadmin"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	// Product saves upload an image to the backend before the page answers.
	writeTimeout    = 90 * time.Second
	idleTimeout     = 2 * time.Minute
	shutdownTimeout = 5 * time.Second
	readyTimeout    = 5 * time.Second

	defaultSweepInterval = 10 * time.Minute
)

// Server owns every long-lived component of the admin process.
type Server struct {
	config      *config.Config
	store       store.Store
	sessions    *session.Manager
	api         *backend.Client
	guard       *submit.Guard
	admin       *webadmin.Admin
	registry    *prometheus.Registry
	handler     http.Handler
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// initStore opens the session store. ":memory:" keeps sessions in process.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("STELLARA_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	if dbPath == ":memory:" {
		return store.NewMemoryStore(), nil
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New builds a Server from cfg. Nothing listens until Run or Serve.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(st, session.ManagerConfig{
		BaseURL:      cfg.Backend.BaseURL,
		Duration:     cfg.Session.Duration,
		Secret:       cfg.Session.Secret,
		SecureCookie: cfg.Session.SecureCookie,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("creating session manager: %w", err)
	}
	if cfg.Session.Secret == "" {
		logger.Warn("session.secret is not set, backend tokens are stored unsealed")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	api := backend.NewClient(cfg.Backend.BaseURL, backend.Options{
		Timeout: cfg.Backend.Timeout,
		Metrics: backend.NewMetrics(registry),
		Logger:  logger.With("component", "backend"),
	})

	guard := submit.New(submit.DefaultTTL, submit.DefaultMaxSize)

	s := &Server{
		config:   cfg,
		store:    st,
		sessions: sessions,
		api:      api,
		guard:    guard,
		registry: registry,
		logger:   logger.With("component", "server"),
	}

	s.admin = webadmin.New(sessions, api, catalog.NewService(api, cfg.Catalog.SummaryCategories), guard, webadmin.Config{
		Categories:   cfg.Catalog.Categories,
		SecureCookie: cfg.Session.SecureCookie,
		MaxImageSize: cfg.Catalog.MaxImageBytes(),
		Activity:     st,
	})

	s.handler = s.routes(newHTTPMetrics(registry))
	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return s, nil
}

// Handler returns the full HTTP surface: health, metrics, and the admin UI.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes(httpMetrics *httpMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)
	if s.config.Metrics.Enabled {
		mux.Handle("GET "+s.config.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	}
	mux.Handle("/", s.admin.Handler())

	return requestID(httpMetrics.middleware(s.logger, mux))
}

// Registry exposes the metrics registry the server's collectors use.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK when the backend answers a product listing.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	list, err := s.api.ListProducts(ctx)
	if err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("backend unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d products)", len(list))
}

// setupListener creates the HTTP listener based on configuration (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
		}
		return s.setupTailscaleListener(ctx)
	}

	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// Run listens and serves until ctx is canceled or the server fails.
// Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		_ = s.close()
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln and sweeps expired sessions until ctx is canceled,
// then shuts the HTTP server down and releases every resource.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	sweep := s.config.Session.SweepInterval
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}
	g.Go(func() error {
		return s.sessions.RunSweeper(gctx, sweep)
	})

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			s.logger.Info("context canceled, initiating shutdown")
		}
		return s.gracefulShutdown()
	})

	serverErr := g.Wait()
	if serverErr != nil {
		s.logger.Error("server error", "error", serverErr)
	}
	closeErr := s.close()

	if serverErr != nil {
		return serverErr
	}
	return closeErr
}

// gracefulShutdown stops the HTTP server with a fresh context and timeout.
// Uses context.Background() since the run context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and releases resources. Safe to call after
// Run has returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "close", s.close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// close releases the store, the tailnet node, and the submit guard once.
func (s *Server) close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.tsnetServer != nil {
			errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
		}
		errs = appendCloseError(errs, "store close", s.store.Close())
		s.guard.Close()

		if len(errs) > 0 {
			s.closeErr = fmt.Errorf("close errors: %v", errs)
		}
	})
	return s.closeErr
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "stellara-admin", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener starts a tsnet node and listens on it, so the admin
// is reachable from the tailnet only.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(tsCfg.Hostname, status)

	if !tsCfg.HTTPS {
		ln, err := s.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}

	s.logger.Info("enabling HTTPS with Tailscale certs on :443")
	ln, err := s.tsnetServer.Listen("tcp", ":443")
	if err != nil {
		return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
	}
	lc, err := s.tsnetServer.LocalClient()
	if err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("getting tailscale local client: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (s *Server) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	s.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}
