package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jobtrail/internal/logging"
	"jobtrail/internal/mailbox"
	"jobtrail/internal/monitor"
	"jobtrail/internal/notifications"
	"jobtrail/internal/registry"
	"jobtrail/internal/services"
	"jobtrail/internal/stage"
)

// Monitor is the loop control surface used by the routes.
type Monitor interface {
	Start() bool
	Stop()
	ManualScan(ctx context.Context) (monitor.ScanReport, error)
	Status() monitor.Status
}

// AuthHook runs after a successful login and before the monitor starts. It
// returns the number of applications restored from storage.
type AuthHook func(ctx context.Context, account string) (int, error)

// Service implements the route capabilities on top of the mailbox, monitor
// and registry.
type Service struct {
	mailbox  mailbox.Client
	monitor  Monitor
	registry *registry.Registry
	notifier notifications.Service
	onAuth   AuthHook
	states   *authStates
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAuthHook registers the callback that runs after authentication.
func WithAuthHook(hook AuthHook) Option {
	return func(s *Service) {
		s.onAuth = hook
	}
}

// WithNotifier sets the service used for test notifications.
func WithNotifier(notifier notifications.Service) Option {
	return func(s *Service) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithClock overrides the clock used for OAuth state expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.states.now = now
		}
	}
}

// NewService constructs the route facade.
func NewService(mb mailbox.Client, mon Monitor, reg *registry.Registry, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		mailbox:  mb,
		monitor:  mon,
		registry: reg,
		notifier: notifications.NewService(nil),
		states:   newAuthStates(time.Now),
		logger:   logging.NewComponentLogger(logger, "api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status returns monitor state and registry totals.
func (s *Service) Status(context.Context) Status {
	grouped := GroupByStage(s.registry.ListGroupedByStage())
	return Status{
		Monitor:      s.monitor.Status(),
		Applications: grouped.Total,
		Counts:       StageCounts(grouped),
	}
}

// StartAuth issues a state token and returns the provider login URL.
func (s *Service) StartAuth(context.Context) (AuthStartResponse, error) {
	state := s.states.issue()
	url, err := s.mailbox.AuthorizationURL(state)
	if err != nil {
		return AuthStartResponse{}, err
	}
	return AuthStartResponse{AuthorizationURL: url, State: state}, nil
}

// CompleteAuth exchanges the authorization code, restores stored
// applications for the account, and starts the monitor. A non-empty state
// must match one issued by StartAuth.
func (s *Service) CompleteAuth(ctx context.Context, req AuthCompleteRequest) (AuthCompleteResponse, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return AuthCompleteResponse{}, services.Wrap(services.ErrValidation, "api", "complete auth", "authorization code is required", nil)
	}
	if state := strings.TrimSpace(req.State); state != "" && !s.states.consume(state) {
		return AuthCompleteResponse{}, services.Wrap(services.ErrValidation, "api", "complete auth", "unknown or expired state", nil)
	}

	account, err := s.mailbox.Authenticate(ctx, code)
	if err != nil {
		return AuthCompleteResponse{}, err
	}
	resp := AuthCompleteResponse{Account: account}
	if s.onAuth != nil {
		restored, err := s.onAuth(ctx, account)
		if err != nil {
			return resp, err
		}
		resp.Restored = restored
	}
	resp.MonitorRunning = s.monitor.Start()
	s.logger.Info("mailbox connected",
		logging.String(logging.FieldEventType, "mailbox_connected"),
		logging.String("account", account),
		logging.Int("restored", resp.Restored),
		logging.Bool("monitor_running", resp.MonitorRunning),
	)
	return resp, nil
}

// StartMonitor starts the polling loop.
func (s *Service) StartMonitor(context.Context) (MonitorResponse, error) {
	if !s.monitor.Start() {
		return MonitorResponse{}, services.Wrap(services.ErrNotAuthenticated, "api", "start monitor", "connect a mailbox first", nil)
	}
	return MonitorResponse{Running: true}, nil
}

// StopMonitor stops the polling loop. Stopping an idle monitor succeeds.
func (s *Service) StopMonitor(context.Context) MonitorResponse {
	s.monitor.Stop()
	return MonitorResponse{Running: s.monitor.Status().IsRunning}
}

// Scan runs one synchronous poll cycle.
func (s *Service) Scan(ctx context.Context) (ScanResponse, error) {
	report, err := s.monitor.ManualScan(ctx)
	if err != nil {
		return ScanResponse{}, err
	}
	return ScanResponse{
		Fetched:    report.Fetched,
		Classified: report.Classified,
		Merged:     report.Merged,
		Total:      s.registry.Len(),
	}, nil
}

// Applications returns every application grouped by stage.
func (s *Service) Applications(context.Context) ApplicationsByStage {
	return GroupByStage(s.registry.ListGroupedByStage())
}

// Application returns one application.
func (s *Service) Application(_ context.Context, id int64) (Application, error) {
	app, ok := s.registry.Get(id)
	if !ok {
		return Application{}, notFound("get application", id)
	}
	return FromApplication(app), nil
}

// AddApplication creates an application or merges the stage into an
// existing one with the same identity.
func (s *Service) AddApplication(_ context.Context, req AddApplicationRequest) (Application, error) {
	next := stage.Applied
	if strings.TrimSpace(req.Stage) != "" {
		parsed, err := stage.Parse(req.Stage)
		if err != nil {
			return Application{}, err
		}
		next = parsed
	}
	app, err := s.registry.Add(req.Company, req.Position, next)
	if err != nil {
		return Application{}, err
	}
	return FromApplication(app), nil
}

// SetStage overrides the stage of an application.
func (s *Service) SetStage(_ context.Context, id int64, req SetStageRequest) (Application, error) {
	next, err := stage.Parse(req.Stage)
	if err != nil {
		return Application{}, err
	}
	app, err := s.registry.SetStage(id, next)
	if err != nil {
		return Application{}, err
	}
	return FromApplication(app), nil
}

// DeleteApplication removes an application.
func (s *Service) DeleteApplication(_ context.Context, id int64) error {
	if !s.registry.Delete(id) {
		return notFound("delete application", id)
	}
	return nil
}

// TestNotification publishes a test event through the notifier.
func (s *Service) TestNotification(ctx context.Context) error {
	return s.notifier.Publish(ctx, notifications.EventTest, nil)
}

func notFound(op string, id int64) error {
	return services.Wrap(services.ErrNotFound, "api", op, fmt.Sprintf("application %d", id), nil)
}
