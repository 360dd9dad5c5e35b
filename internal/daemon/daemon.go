package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"jobtrail/internal/api"
	"jobtrail/internal/config"
	"jobtrail/internal/logging"
	"jobtrail/internal/mailbox"
	"jobtrail/internal/monitor"
	"jobtrail/internal/notifications"
	"jobtrail/internal/registry"
	"jobtrail/internal/store"
)

// Daemon ties the mailbox monitor, registry persistence, and the HTTP API
// into one lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	registry *registry.Registry
	mailbox  mailbox.Client
	monitor  *monitor.Manager
	notifier notifications.Service
	service  *api.Service
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	userID  atomic.Int64
	bg      sync.WaitGroup
}

// Deps are the collaborators assembled by the composition root.
type Deps struct {
	Store    *store.Store
	Registry *registry.Registry
	Mailbox  mailbox.Client
	Monitor  *monitor.Manager
	Notifier notifications.Service
}

// New constructs a daemon and subscribes it to registry changes.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Registry == nil || deps.Mailbox == nil || deps.Monitor == nil {
		return nil, errors.New("daemon requires config, store, registry, mailbox, and monitor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    deps.Store,
		registry: deps.Registry,
		mailbox:  deps.Mailbox,
		monitor:  deps.Monitor,
		notifier: notifier,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.service = api.NewService(deps.Mailbox, deps.Monitor, deps.Registry, logger,
		api.WithAuthHook(d.onAuthenticated),
		api.WithNotifier(notifier),
	)
	d.api = newAPIServer(cfg, d.service, logger)
	deps.Registry.Subscribe(d.handleChange)
	return d, nil
}

// Service exposes the route facade for the IPC layer.
func (d *Daemon) Service() *api.Service {
	return d.service
}

// Start acquires the lock, serves the HTTP API, and resumes monitoring when
// a stored mailbox session is available.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another jobtrail daemon instance is already running")
	}

	if err := d.api.start(); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	d.running.Store(true)

	if d.mailbox.IsAuthenticated() {
		account := d.mailbox.Account()
		if _, err := d.onAuthenticated(ctx, account); err != nil {
			logging.WarnWithContext(d.logger, "failed to restore stored applications", "restore_failed",
				logging.Error(err),
				logging.String("account", account),
				logging.String(logging.FieldErrorHint, "check the database path and permissions"),
				logging.String(logging.FieldImpact, "previously tracked applications are not listed"),
			)
		}
		if d.cfg.Monitor.AutoStart {
			d.monitor.Start()
		}
	}

	d.logger.Info("jobtrail daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.Bool("mailbox_connected", d.mailbox.IsAuthenticated()),
	)
	return nil
}

// Stop stops monitoring and the API server and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.monitor.Stop()
	d.api.stop()
	d.bg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start fails"),
		)
	}
	d.running.Store(false)
	d.logger.Info("jobtrail daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
		Status:       d.service.Status(ctx),
	}
}
