package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"jobtrail/internal/classifier"
	"jobtrail/internal/config"
	"jobtrail/internal/daemon"
	"jobtrail/internal/ipc"
	"jobtrail/internal/logging"
	"jobtrail/internal/mailbox"
	"jobtrail/internal/monitor"
	"jobtrail/internal/notifications"
	"jobtrail/internal/registry"
	"jobtrail/internal/services"
	"jobtrail/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run assembles the daemon and blocks until a signal or an IPC shutdown
// request arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "jobtrail.log")
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logConfigSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, "jobtrail.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open application store", logging.Error(err))
		return err
	}
	defer st.Close()

	mb, err := mailbox.New(signalCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create mailbox client: %w", err)
	}
	cls, err := classifier.New(signalCtx, cfg, logger)
	if err != nil {
		if errors.Is(err, services.ErrConfiguration) {
			logging.ErrorWithContext(logger, "classifier configuration invalid", "classifier_config_invalid",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set the provider API key or choose classifier.provider = \"heuristic\""),
			)
		}
		return fmt.Errorf("create classifier: %w", err)
	}
	defer closeClassifier(cls, logger)

	reg := registry.New()
	notifier := notifications.NewService(cfg)
	mon := monitor.NewManager(cfg, mb, cls, reg, logger, monitor.WithNotifier(notifier))

	d, err := daemon.New(cfg, daemon.Deps{
		Store:    st,
		Registry: reg,
		Mailbox:  mb,
		Monitor:  mon,
		Notifier: notifier,
	}, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, cancel, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("jobtrail daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("mailbox_provider", cfg.Mailbox.Provider),
		logging.Bool("oauth_client_present", cfg.HasOAuthClient()),
		logging.String("classifier_provider", cfg.Classifier.Provider),
		logging.Int("min_confidence", cfg.Classifier.MinConfidence),
		logging.Duration("poll_interval", cfg.PollInterval()),
		logging.Bool("notifications_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("database", cfg.DatabasePath()),
	)
}

// closeClassifier releases model clients that hold connections.
func closeClassifier(cls classifier.Classifier, logger *slog.Logger) {
	closer, ok := cls.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("classifier close failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "classifier_close_failed"),
		)
	}
}
