package server

import (
	"context"
	"log/slog"
	"net/http"

	appfixtures "github.com/preston-bernstein/epl-fixtures-service/internal/app/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/cache"
	"github.com/preston-bernstein/epl-fixtures-service/internal/config"
	"github.com/preston-bernstein/epl-fixtures-service/internal/fetch"
	httpserver "github.com/preston-bernstein/epl-fixtures-service/internal/http"
	"github.com/preston-bernstein/epl-fixtures-service/internal/http/handlers"
	"github.com/preston-bernstein/epl-fixtures-service/internal/http/middleware"
	"github.com/preston-bernstein/epl-fixtures-service/internal/live"
	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
	"github.com/preston-bernstein/epl-fixtures-service/internal/metrics"
	"github.com/preston-bernstein/epl-fixtures-service/internal/poller"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers/bundled"
)

var metricsSetup = metrics.Setup

// Poller is the slice of poller behavior the server drives.
type Poller interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
	Status() poller.Status
	Refresh(ctx context.Context) (appfixtures.State, error)
}

type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	metrics       *metrics.Recorder
	store         cache.Store
	fixtures      *appfixtures.Service
	hub           *live.Hub
	httpServer    httpServer
	metricsServer httpServer
	poller        Poller
	metricsStop   func(context.Context) error
	unsubscribe   func()
}

// New constructs a server with default provider and poller wiring.
func New(cfg config.Config, logger *slog.Logger) *Server {
	return newServerWithSource(cfg, logger, nil, nil)
}

func newServerWithSource(cfg config.Config, logger *slog.Logger, source providers.Source, recorder *metrics.Recorder) *Server {
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}
	recorder, metricsSrv, metricsShutdown := buildMetrics(cfg, logger, recorder)

	factory := newProviderFactory(logger, recorder)
	var upstream providers.Source
	if source == nil {
		upstream = factory.build(cfg)
	} else {
		upstream = factory.wrap(cfg, source)
	}

	store := buildCache(context.Background(), cfg.Cache, logger)
	orch := fetch.New(upstream, store, bundled.New(), logger, recorder)
	svc := appfixtures.NewService(orch, cfg.Poll.Policy(), logger)
	svc.Hydrate(context.Background())

	plr := poller.New(svc, cfg.Poll.Policy(), logger, recorder)
	hub := live.NewHub(initialMessage(svc), logger, recorder)
	unsubscribe := svc.Subscribe(func(state appfixtures.State) {
		hub.Broadcast(fixturesMessage(state))
	})
	httpSrv := buildHTTPServer(cfg, svc, store, hub, logger, recorder, plr)

	return &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       recorder,
		store:         store,
		fixtures:      svc,
		hub:           hub,
		httpServer:    httpSrv,
		metricsServer: metricsSrv,
		poller:        plr,
		metricsStop:   metricsShutdown,
		unsubscribe:   unsubscribe,
	}
}

// newServerWithDeps is used for testing to inject custom components.
func newServerWithDeps(cfg config.Config, logger *slog.Logger, svc *appfixtures.Service, httpSrv httpServer, plr Poller) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		fixtures:   svc,
		httpServer: httpSrv,
		poller:     plr,
	}
}

func fixturesMessage(state appfixtures.State) live.Message {
	return live.Message{
		Type:    live.TypeFixtures,
		Version: state.Version,
		Data:    state.Fixtures,
	}
}

func initialMessage(svc *appfixtures.Service) func() (live.Message, bool) {
	return func() (live.Message, bool) {
		state := svc.Snapshot()
		if !state.Loaded() {
			return live.Message{}, false
		}
		return fixturesMessage(state), true
	}
}

func buildHTTPServer(cfg config.Config, svc *appfixtures.Service, store cache.Store, hub *live.Hub, logger *slog.Logger, recorder *metrics.Recorder, plr Poller) httpServer {
	var statusFn func() poller.Status
	if plr != nil {
		statusFn = plr.Status
	}
	var statsFn func(context.Context) (cache.Stats, error)
	if store != nil {
		statsFn = store.Stats
	}

	handler := handlers.NewHandler(svc, cfg.Display.Settings(), logger, statusFn, statsFn)
	if hub != nil {
		handler.WithLiveClients(hub.Clients)
	}
	var admin *handlers.AdminHandler
	if plr != nil {
		admin = handlers.NewAdminHandler(plr, cfg.AdminToken, logger)
	}
	var ws http.Handler
	if hub != nil {
		ws = hub
	}
	router := httpserver.NewRouter(handler, admin, ws)
	wrapped := middleware.Chain(logger, recorder, router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           wrapped,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return netHTTPServer{srv: srv}
}

// Run starts the poller, live hub and HTTP server, then waits for context cancellation to shut down gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	s.startMetrics()
	if s.hub != nil {
		go s.hub.Run(ctx)
	}
	if s.store != nil {
		go runCacheCleanup(ctx, s.store, s.cfg.Cache.CleanupInterval, s.cfg.Cache.MaxAge, s.logger)
	}
	s.startServer(stop)
	s.poller.Start(ctx)

	<-ctx.Done()
	if s.logger != nil {
		s.logger.Info("shutdown signal received")
	}

	s.gracefulShutdown()
}

func (s *Server) startServer(stop context.CancelFunc) {
	if s.logger != nil {
		s.logger.Info("http server starting", slog.String("addr", s.httpServer.Addr()))
	}
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	if s.logger != nil {
		s.logger.Info("metrics server starting", slog.String("addr", s.metricsServer.Addr()))
	}
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil && s.logger != nil {
			s.logger.Warn("metrics shutdown failed", "error", err)
		}
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil && s.logger != nil {
			s.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	if err := s.poller.Stop(shutdownCtx); err != nil && s.logger != nil {
		s.logger.Error("failed to stop poller", "error", err)
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && s.logger != nil {
		s.logger.Error("graceful shutdown failed", "error", err)
	}

	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil && s.logger != nil {
			s.logger.Warn("cache close failed", "error", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("shutdown complete")
	}
}

func buildMetrics(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*metrics.Recorder, httpServer, func(context.Context) error) {
	if recorder != nil {
		return recorder, nil, nil
	}

	recCfg := metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		Port:         cfg.Metrics.Port,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,

		ExportInterval: cfg.Metrics.ExportInterval,
	}

	rec, handler, shutdown, err := metricsSetup(context.Background(), recCfg)
	if err != nil {
		if logger != nil {
			logger.Warn("metrics setup failed, continuing without telemetry", "err", err)
		}
		return metrics.NewRecorder(), nil, nil
	}

	var metricsSrv httpServer
	if handler != nil && recCfg.Enabled {
		metricsSrv = netHTTPServer{
			srv: &http.Server{
				Addr:              ":" + recCfg.Port,
				Handler:           handler,
				ReadHeaderTimeout: readHeaderTimeout,
			},
		}
	}

	return rec, metricsSrv, shutdown
}

func launchServer(name string, srv httpServer, logger *slog.Logger, onError func(error)) {
	go func() {
		if logger != nil {
			logger.Info("starting "+name+" server", slog.String("addr", srv.Addr()))
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Warn(name+" server failed", "error", err)
			}
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}

// Fixtures exposes the fixtures service (useful for tests).
func (s *Server) Fixtures() *appfixtures.Service {
	return s.fixtures
}
