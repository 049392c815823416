package daemon

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/api"
	"github.com/notioff/telesuper/internal/bus"
	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/config"
	"github.com/notioff/telesuper/internal/credstore"
	"github.com/notioff/telesuper/internal/engine"
	"github.com/notioff/telesuper/internal/lock"
	"github.com/notioff/telesuper/internal/logging"
	"github.com/notioff/telesuper/internal/notify"
	"github.com/notioff/telesuper/internal/session"
	"github.com/notioff/telesuper/internal/wa"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	Config     *config.Config
	SocketPath string // optional override for testing; empty = use default
	// EngineFactory overrides the WhatsApp engine, for testing.
	EngineFactory engine.Factory
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			providePaths,
			provideLogger,
			provideBus,
			provideLock,
			provideCredentials,
			provideNotifier,
			provideEngineFactory,
			provideStore,
			provideService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func providePaths(p Params) (session.Paths, error) {
	paths := session.For(p.Profile)
	return paths, paths.Ensure()
}

func provideLogger(p Params, paths session.Paths) (*zap.Logger, error) {
	return logging.New(paths.LogPath("telesuperd"), p.Profile, logging.Options{
		Level:   p.Config.LogLevel,
		Console: true,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(paths session.Paths, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("dir", paths.Root))
	l, err := lock.Acquire(paths.Root)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideCredentials(paths session.Paths) *credstore.Store {
	return credstore.New(paths.Credentials())
}

func provideNotifier(p Params, logger *zap.Logger) *notify.Downloads {
	return notify.NewDownloads(p.Config.Notifications, logger.Named("notify"))
}

// provideEngineFactory builds WhatsApp engines for the profile. The store
// calls it at start and again after a logout wiped the engine directory.
func provideEngineFactory(p Params, paths session.Paths, logger *zap.Logger) engine.Factory {
	if p.EngineFactory != nil {
		return p.EngineFactory
	}
	return wa.Factory(wa.Options{
		SessionDB:  paths.SessionDB(),
		AppDB:      paths.AppDB(),
		FilesDir:   paths.FilesDir(),
		DeviceName: "telesuper",
		Logger:     logger.Named("wa"),
	})
}

func provideStore(paths session.Paths, factory engine.Factory, b *bus.Bus, creds *credstore.Store, n *notify.Downloads, logger *zap.Logger) *cache.Store {
	return cache.New(cache.Params{
		Factory:  factory,
		Bus:      b,
		Creds:    creds,
		DataDir:  paths.EngineDir(),
		Notifier: n,
		Logger:   logger.Named("cache"),
	})
}

func provideService(p Params, store *cache.Store, logger *zap.Logger) *api.Service {
	return api.NewService(p.Profile, store, logger.Named("api"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, store *cache.Store, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.Start(ctx); err != nil {
				return err
			}

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			if err := store.Stop(); err != nil {
				logger.Warn("error stopping engine", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
