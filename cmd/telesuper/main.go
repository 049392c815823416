package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/notioff/telesuper/internal/bus"
	"github.com/notioff/telesuper/internal/cache"
	"github.com/notioff/telesuper/internal/config"
	"github.com/notioff/telesuper/internal/credstore"
	"github.com/notioff/telesuper/internal/export"
	"github.com/notioff/telesuper/internal/lock"
	"github.com/notioff/telesuper/internal/logging"
	"github.com/notioff/telesuper/internal/notify"
	"github.com/notioff/telesuper/internal/session"
	"github.com/notioff/telesuper/internal/tui"
	"github.com/notioff/telesuper/internal/viewmodel"
	"github.com/notioff/telesuper/internal/wa"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	cfg, err := config.Resolve(session.ConfigPath())
	if err != nil {
		fatal(fmt.Errorf("config: %w", err))
	}
	name := session.Resolve(*sessionFlag, cfg)
	if err := session.ValidateName(name); err != nil {
		fatal(err)
	}
	if err := run(name, cfg); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// run owns the profile for the lifetime of the terminal UI. A running
// daemon holds the same lock, so the two never share an engine.
func run(name string, cfg *config.Config) error {
	paths := session.For(name)
	if err := paths.Ensure(); err != nil {
		return err
	}

	lk, err := lock.Acquire(paths.Root)
	if err != nil {
		var held *lock.HeldError
		if errors.As(err, &held) {
			return fmt.Errorf("%w (stop telesuperd or use telesuperctl)", err)
		}
		return err
	}
	defer func() { _ = lk.Release() }()

	logger, err := logging.New(paths.LogPath("telesuper"), name, logging.Options{Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store := cache.New(cache.Params{
		Factory: wa.Factory(wa.Options{
			SessionDB:  paths.SessionDB(),
			AppDB:      paths.AppDB(),
			FilesDir:   paths.FilesDir(),
			DeviceName: "telesuper",
			Logger:     logger.Named("wa"),
		}),
		Bus:      bus.New(),
		Creds:    credstore.New(paths.Credentials()),
		DataDir:  paths.EngineDir(),
		Notifier: notify.NewDownloads(cfg.Notifications, logger.Named("notify")),
		Logger:   logger.Named("cache"),
	})
	if err := store.Start(context.Background()); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer func() {
		if err := store.Stop(); err != nil {
			logger.Warn("error stopping engine", zap.Error(err))
		}
	}()

	vmLogger := logger.Named("tui")
	app := tui.NewApp(tui.Deps{
		Session:  name,
		Store:    store,
		Auth:     viewmodel.NewAuth(store, vmLogger),
		ChatList: viewmodel.NewChatList(store, vmLogger),
		Files:    viewmodel.NewFiles(store, export.New(cfg.DownloadsDir)),
		Storage:  viewmodel.NewStorage(store),
		Privacy:  viewmodel.NewPrivacy(store),
		PageSize: cfg.HistoryPageSize,
		Logger:   vmLogger,
	})
	logger.Info("terminal UI starting")
	return app.Run()
}
