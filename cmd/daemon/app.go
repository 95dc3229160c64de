package main

import (
	"context"
	"net/http"

	"github.com/genricoloni/nowshowing/internal/artwork"
	"github.com/genricoloni/nowshowing/internal/catalog"
	"github.com/genricoloni/nowshowing/internal/config"
	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/genricoloni/nowshowing/internal/engine"
	"github.com/genricoloni/nowshowing/internal/logging"
	"github.com/genricoloni/nowshowing/internal/metrics"
	"github.com/genricoloni/nowshowing/internal/nowplaying"
	"github.com/genricoloni/nowshowing/internal/power"
	"github.com/genricoloni/nowshowing/internal/remote"
	"github.com/genricoloni/nowshowing/internal/rotation"
	"github.com/genricoloni/nowshowing/internal/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// AppOptions is the full dependency graph of the daemon
var AppOptions = fx.Options(
	fx.Provide(
		newLogger,
		config.NewAppConfig,
		metrics.New,
		newCatalog,
		server.NewHub,
		newRotation,
		newPowerSender,
		newGate,
		newPowerController,
		newSource,
		nowplaying.NewSessionsClient,
		newScreenResolution,
		artwork.NewHTTPFetcher,
		newFitter,
		newListener,
		newRouter,
		newServer,
		newEngine,
	),
	fx.Invoke(registerHooks),
)

// newLogger creates the process logger from LOG_LEVEL and LOG_FILE
func newLogger() (*zap.Logger, error) {
	return logging.New(logging.OptionsFromEnv())
}

func newCatalog(logger *zap.Logger, cfg *config.AppConfig) *catalog.Client {
	return catalog.NewClient(logger, cfg.GetBackendURL())
}

func newRotation(
	logger *zap.Logger,
	client *catalog.Client,
	hub *server.Hub,
	m *metrics.Metrics,
	cfg *config.AppConfig,
) *rotation.Controller {
	t := cfg.GetTimings()
	return rotation.NewController(logger, client, hub, m, rotation.Options{
		SettleDelay:          t.SettleDelay,
		RefreshSettleDelay:   t.RefreshSettleDelay,
		CacheRefreshInterval: t.CacheRefreshInterval,
	})
}

// newPowerSender picks the backend API or a local cec-client
func newPowerSender(logger *zap.Logger, cfg *config.AppConfig, client *catalog.Client) domain.PowerSender {
	if cfg.GetPowerBackend() == "cec" {
		cec, err := power.NewCECExecutor(logger)
		if err == nil {
			return cec
		}
		logger.Warn("Local CEC unavailable, using backend API", zap.Error(err))
	}
	return client
}

func newGate(cfg *config.AppConfig) (*power.Gate, error) {
	return power.NewGate(cfg.GetTimezone())
}

func newPowerController(
	logger *zap.Logger,
	sender domain.PowerSender,
	gate *power.Gate,
	ctrl *rotation.Controller,
	m *metrics.Metrics,
) *power.Controller {
	return power.NewController(logger, sender, gate, ctrl, m)
}

// newSource selects the now-playing monitor
func newSource(logger *zap.Logger, cfg *config.AppConfig, ctrl *rotation.Controller) engine.Source {
	switch cfg.GetNowPlayingSource() {
	case "plex":
		return engine.Source{
			Monitor:          nowplaying.NewPlexSocket(logger, ctrl, cfg.GetTimings().ReconnectDelay),
			NeedsPlexService: true,
		}
	case "mpris":
		return engine.Source{Monitor: nowplaying.NewMprisMonitor(logger)}
	default:
		logger.Info("Now-playing source disabled", zap.String("source", cfg.GetNowPlayingSource()))
		return engine.Source{}
	}
}

func newScreenResolution(logger *zap.Logger, cfg *config.AppConfig) *domain.ScreenResolution {
	return artwork.NewScreenResolution(logger, cfg)
}

func newFitter(logger *zap.Logger, res *domain.ScreenResolution, cfg *config.AppConfig) *artwork.PosterFitter {
	return artwork.NewPosterFitter(logger, res, cfg)
}

func newListener(logger *zap.Logger, cfg *config.AppConfig) *remote.Listener {
	return remote.NewListener(logger, cfg.GetCommandURL(), cfg.GetTimings().ReconnectDelay)
}

func newRouter(
	logger *zap.Logger,
	ctrl *rotation.Controller,
	hub *server.Hub,
	m *metrics.Metrics,
	cfg *config.AppConfig,
) http.Handler {
	return server.NewRouter(logger, ctrl, hub, m, cfg.GetOutputDir())
}

func newServer(logger *zap.Logger, cfg *config.AppConfig, handler http.Handler, hub *server.Hub) *server.Server {
	return server.NewServer(logger, cfg.GetListenAddr(), handler, hub)
}

func newEngine(
	logger *zap.Logger,
	ctrl *rotation.Controller,
	pc *power.Controller,
	source engine.Source,
	sessions *nowplaying.SessionsClient,
	fetcher *artwork.HTTPFetcher,
	fitter *artwork.PosterFitter,
	listener *remote.Listener,
	hub *server.Hub,
	m *metrics.Metrics,
) *engine.Engine {
	return engine.NewEngine(logger, ctrl, pc, source, sessions, fetcher, fitter, listener, hub, m)
}

// registerHooks starts the API, then the engine. Stop runs in reverse.
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, srv *server.Server, eng *engine.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := srv.Start(ctx); err != nil {
				return err
			}
			if err := eng.Start(ctx); err != nil {
				return err
			}
			logger.Info("NowShowing Daemon Started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			if err := eng.Stop(ctx); err != nil {
				logger.Warn("Engine did not stop cleanly", zap.Error(err))
			}
			return srv.Stop(ctx)
		},
	})
}
