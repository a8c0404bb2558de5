// Package app wires dropbot together: config, logging, storage, the
// Telegram transport, the command surface, and the poll cycle.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"dropbot/internal/commands"
	"dropbot/internal/config"
	"dropbot/internal/drops"
	"dropbot/internal/metrics"
	"dropbot/internal/notify"
	"dropbot/internal/poller"
	"dropbot/internal/storage"
	kit "dropbot/internal/transport"
	"dropbot/internal/transport/telegram"
	logx "dropbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	adapter kit.Adapter
	store   storage.Store
	watcher *poller.Watcher
	cmds    *commands.Manager
	debug   *metrics.Server

	updates chan kit.Update

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logs.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	busyTimeout, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, logs.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	feedTimeout, err := config.ParseDurationOrDefault("feed.timeout", cfg.Feed.Timeout, 15*time.Second)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	feed := drops.NewClient(cfg.Feed.URL, feedTimeout,
		logs.Logger().With(logx.String("comp", "feed")))

	target := kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}
	sink := notify.New(adapter, target, cfg.Poller.RatePerSec,
		logs.Logger().With(logx.String("comp", "notify")))

	interval, err := config.ParseDurationOrDefault("poller.interval", cfg.Poller.Interval, time.Hour)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	watcher := poller.New(store, feed, sink, interval,
		logs.Logger().With(logx.String("comp", "poller")))

	cmds := commands.NewManager(adapter, store,
		logs.Logger().With(logx.String("comp", "commands")))

	debug := metrics.NewServer(metrics.ServerConfig{
		Enabled: cfg.Debug.Enabled,
		Addr:    cfg.Debug.Addr,
	}, logs.Logger().With(logx.String("comp", "debug")))

	return &App{
		cfgm:    cfgm,
		logs:    logs,
		log:     log,
		adapter: adapter,
		store:   store,
		watcher: watcher,
		cmds:    cmds,
		debug:   debug,
		updates: make(chan kit.Update, 256),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return errors.New("app already started")
	}
	a.started = true
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return err
	}
	if mu, ok := a.adapter.(kit.CommandMenuUpdater); ok {
		if err := mu.UpdateMenuCommands(runCtx, commands.MenuCommands()); err != nil {
			a.log.Warn("failed to update command menu", logx.Err(err))
		}
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cmds.DispatchLoop(runCtx, a.updates); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("command dispatch loop exited", logx.Err(err))
		}
	}()

	if cfg := a.cfgm.Get(); cfg != nil && cfg.Poller.Enabled {
		if err := a.watcher.Start(runCtx); err != nil {
			return err
		}
	} else {
		a.log.Warn("poller disabled by config; drop checks will not run")
	}

	if err := a.debug.Start(runCtx); err != nil {
		a.log.Warn("debug server failed to start", logx.Err(err))
	}

	a.startConfigWatch(runCtx)

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify: ready")
	}

	a.log.Info("started")
	return nil
}

// startConfigWatch hot-reloads the safe subset of the config: log level and
// sinks, and the poll interval. Transport and storage changes need a restart.
func (a *App) startConfigWatch(ctx context.Context) {
	a.cfgm.SetLogger(a.logs.Logger().With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	sub := a.cfgm.Subscribe(1)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("config watcher exited", logx.Err(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok || cfg == nil {
					return
				}
				a.applyReload(cfg)
			}
		}
	}()
}

func (a *App) applyReload(cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	// Validate() already ran, so the parse cannot fail here.
	interval, _ := config.ParseDurationOrDefault("poller.interval", cfg.Poller.Interval, time.Hour)
	a.watcher.Apply(interval)
}

func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel == nil {
		return nil
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("stopping")

	cancel()
	a.watcher.Stop(ctx)
	_ = a.adapter.Stop(ctx)
	_ = a.debug.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		a.log.Warn("shutdown timed out waiting for workers")
	}

	err := a.store.Close()
	_ = a.logs.Close()
	return err
}
