package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"jobtrail/internal/classifier"
	"jobtrail/internal/config"
	"jobtrail/internal/logging"
	"jobtrail/internal/mailbox"
	"jobtrail/internal/notifications"
	"jobtrail/internal/registry"
)

// Sleeper waits for d or until ctx is done. It reports false when the wait was
// interrupted.
type Sleeper func(ctx context.Context, d time.Duration) bool

// Manager coordinates mailbox polling and registry updates.
type Manager struct {
	mailbox    mailbox.Client
	classifier classifier.Classifier
	registry   *registry.Registry
	notifier   notifications.Service
	logger     *slog.Logger

	pollInterval  time.Duration
	stopTimeout   time.Duration
	maxResults    int
	minConfidence int
	sleep         Sleeper

	seen *seenSet

	// inflight holds ids being classified by the loop or a manual scan.
	inflightMu sync.Mutex
	inflight   map[string]struct{}

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	generation uint64
	failures   int
	processed  int64
	merged     int64
	lastErr    error
	lastScan   time.Time
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithSleeper replaces the wait used between cycles.
func WithSleeper(sleeper Sleeper) Option {
	return func(m *Manager) {
		if sleeper != nil {
			m.sleep = sleeper
		}
	}
}

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// NewManager constructs a monitor. The returned Manager is idle.
func NewManager(cfg *config.Config, mb mailbox.Client, cls classifier.Classifier, reg *registry.Registry, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		mailbox:       mb,
		classifier:    cls,
		registry:      reg,
		notifier:      notifications.NewService(cfg),
		logger:        logging.NewComponentLogger(logger, "monitor"),
		pollInterval:  positiveDuration(cfg.PollInterval(), 5*time.Second),
		stopTimeout:   positiveDuration(cfg.StopTimeout(), 5*time.Second),
		maxResults:    positiveInt(cfg.Monitor.MaxResults, 10),
		minConfidence: cfg.Classifier.MinConfidence,
		sleep:         sleepContext,
		seen:          newSeenSet(positiveInt(cfg.Monitor.SeenCapacity, 500)),
		inflight:      make(map[string]struct{}),
	}
	if m.minConfidence <= 0 {
		m.minConfidence = classifier.DefaultMinConfidence
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func positiveDuration(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
