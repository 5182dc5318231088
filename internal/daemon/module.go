package daemon

import (
	"context"

	"github.com/mfreitas/voxprep/internal/bus"
	"github.com/mfreitas/voxprep/internal/config"
	"github.com/mfreitas/voxprep/internal/lock"
	"github.com/mfreitas/voxprep/internal/logging"
	"github.com/mfreitas/voxprep/internal/metrics"
	"github.com/mfreitas/voxprep/internal/paths"
	"github.com/mfreitas/voxprep/internal/presence"
	"github.com/mfreitas/voxprep/internal/relay"
	"github.com/mfreitas/voxprep/internal/speech"
	"github.com/mfreitas/voxprep/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved daemon settings passed to the fx module.
type Params struct {
	DataDir    string
	ListenAddr string // optional override; empty = use config
}

// Module returns the fx module for the relay daemon, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLock,
			provideStore,
			provideBus,
			providePromRegistry,
			provideMetrics,
			providePresence,
			provideRegistry,
			provideSpeech,
			provideHub,
			provideServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	return config.Load(paths.ConfigPath(p.DataDir))
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(paths.LogPath(p.DataDir), "voxprepd", cfg.Logging.Level)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := paths.EnsureDir(p.DataDir); err != nil {
		return nil, err
	}
	logger.Info("acquiring data-dir lock", zap.String("dir", p.DataDir))
	l, err := lock.Acquire(p.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data-dir lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := paths.DBPath(p.DataDir)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func providePromRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func provideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func providePresence(db *store.DB) *presence.Store {
	return presence.New(db, nil)
}

func provideRegistry() *relay.Registry {
	return relay.NewRegistry()
}

func provideSpeech(cfg *config.Config, logger *zap.Logger) (*speech.Client, error) {
	if cfg.Speech.Endpoint == "" {
		logger.Info("speech collaborator not configured")
		return nil, nil
	}
	return speech.NewClient(speech.Config{
		Endpoint:   cfg.Speech.Endpoint,
		Timeout:    cfg.Speech.Timeout(),
		MaxRetries: cfg.Speech.MaxRetries,
	}, logger)
}

func provideHub(reg *relay.Registry, pres *presence.Store, db *store.DB, sp *speech.Client,
	m *metrics.Metrics, b *bus.Bus, logger *zap.Logger) *relay.Hub {
	return relay.NewHub(reg, pres, db, sp, m, b, logger, nil)
}

func provideServer(p Params, cfg *config.Config, logger *zap.Logger, hub *relay.Hub,
	pres *presence.Store, db *store.DB, promReg *prometheus.Registry) *Server {
	addr := p.ListenAddr
	if addr == "" {
		addr = cfg.Server.ListenAddr
	}
	return NewServer(addr, logger, hub, pres, db, promReg)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, b *bus.Bus, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("relay server error", zap.Error(err))
				}
			}()
			go logPeerEvents(b, logger)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

// logPeerEvents mirrors relay lifecycle events into the log.
func logPeerEvents(b *bus.Bus, logger *zap.Logger) {
	events, unsub := b.Subscribe("relay.", 64)
	defer unsub()
	for evt := range events {
		if change, ok := evt.Payload.(bus.PeerChange); ok {
			logger.Info(evt.Kind, zap.String("user", change.UserID), zap.String("conn", change.ConnID))
		}
	}
}
