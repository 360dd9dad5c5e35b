package daemon_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"jobtrail/internal/api"
	"jobtrail/internal/classifier"
	"jobtrail/internal/config"
	"jobtrail/internal/daemon"
	"jobtrail/internal/logging"
	"jobtrail/internal/mailbox"
	"jobtrail/internal/monitor"
	"jobtrail/internal/notifications"
	"jobtrail/internal/registry"
	"jobtrail/internal/stage"
	"jobtrail/internal/store"
	"jobtrail/internal/testsupport"
)

type fakeMailbox struct {
	mu            sync.Mutex
	authenticated bool
	account       string
}

func (f *fakeMailbox) AuthorizationURL(state string) (string, error) {
	return "https://accounts.example.test/auth?state=" + state, nil
}

func (f *fakeMailbox) Authenticate(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authenticated = true
	return f.account, nil
}

func (f *fakeMailbox) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *fakeMailbox) Account() string { return f.account }

func (f *fakeMailbox) RecentMessages(context.Context, int) ([]mailbox.RawMessage, error) {
	return nil, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type harness struct {
	cfg      *config.Config
	store    *store.Store
	registry *registry.Registry
	mailbox  *fakeMailbox
	notifier *recordingNotifier
	daemon   *daemon.Daemon
}

func newHarness(t *testing.T, mb *fakeMailbox) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithEnsuredDirectories())
	st := testsupport.MustOpenStore(t, cfg)
	reg := registry.New()
	notifier := &recordingNotifier{}
	logger := logging.NewNop()
	mon := monitor.NewManager(cfg, mb, classifier.NewHeuristic(logger), reg, logger, monitor.WithNotifier(notifier))
	d, err := daemon.New(cfg, daemon.Deps{
		Store:    st,
		Registry: reg,
		Mailbox:  mb,
		Monitor:  mon,
		Notifier: notifier,
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return &harness{cfg: cfg, store: st, registry: reg, mailbox: mb, notifier: notifier, daemon: d}
}

func TestDaemonStartStop(t *testing.T) {
	h := newHarness(t, &fakeMailbox{account: "me@example.com"})
	ctx := context.Background()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := h.daemon.Status(ctx)
	if !status.Running || status.APIAddress == "" {
		t.Fatalf("expected running daemon with api address, got %+v", status)
	}
	if status.Monitor.IsRunning {
		t.Fatal("monitor must stay idle without a mailbox session")
	}

	if err := h.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	h.daemon.Stop()
	if h.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
}

func TestDaemonResumesStoredSession(t *testing.T) {
	mb := &fakeMailbox{account: "me@example.com", authenticated: true}
	h := newHarness(t, mb)
	ctx := context.Background()

	userID, err := h.store.EnsureUser(ctx, "me@example.com")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if err := h.store.SaveApplication(ctx, userID, store.Application{
		Company: "Acme", Position: "Engineer", Stage: stage.Interview, LastUpdated: time.Now(),
	}); err != nil {
		t.Fatalf("SaveApplication: %v", err)
	}

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := h.daemon.Status(ctx)
	if !status.Monitor.IsRunning {
		t.Fatal("expected monitor to auto start with a stored session")
	}
	if status.Applications != 1 || status.Counts[string(stage.Interview)] != 1 {
		t.Fatalf("expected restored application, got %+v", status.Status)
	}
}

func TestCompleteAuthRestoresAndMirrorsChanges(t *testing.T) {
	h := newHarness(t, &fakeMailbox{account: "me@example.com"})
	ctx := context.Background()
	svc := h.daemon.Service()
	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	userID, err := h.store.EnsureUser(ctx, "me@example.com")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if err := h.store.SaveApplication(ctx, userID, store.Application{
		Company: "Globex", Position: "Analyst", Stage: stage.Applied, LastUpdated: time.Now(),
	}); err != nil {
		t.Fatalf("SaveApplication: %v", err)
	}

	// Added before login, written through once an account is bound.
	if _, err := svc.AddApplication(ctx, api.AddApplicationRequest{Company: "Initech", Position: "Engineer"}); err != nil {
		t.Fatalf("AddApplication: %v", err)
	}

	resp, err := svc.CompleteAuth(ctx, api.AuthCompleteRequest{Code: "code"})
	if err != nil {
		t.Fatalf("CompleteAuth: %v", err)
	}
	if resp.Restored != 1 || !resp.MonitorRunning {
		t.Fatalf("unexpected auth response %+v", resp)
	}

	stored, err := h.store.UserApplications(ctx, userID)
	if err != nil {
		t.Fatalf("UserApplications: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored applications, got %+v", stored)
	}

	app, ok := h.registry.Find("Globex", "Analyst")
	if !ok {
		t.Fatal("expected restored application in registry")
	}
	if _, err := h.registry.Upsert("Globex", "Analyst", stage.Offer); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	stored, _ = h.store.UserApplications(ctx, userID)
	found := false
	for _, s := range stored {
		if s.Company == "Globex" && s.Stage == stage.Offer {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected stage change to be persisted, got %+v", stored)
	}

	if err := svc.DeleteApplication(ctx, app.ID); err != nil {
		t.Fatalf("DeleteApplication: %v", err)
	}
	stored, _ = h.store.UserApplications(ctx, userID)
	if len(stored) != 1 || stored[0].Company != "Initech" {
		t.Fatalf("expected delete to be persisted, got %+v", stored)
	}

	h.daemon.Stop()
	h.notifier.mu.Lock()
	defer h.notifier.mu.Unlock()
	if len(h.notifier.events) != 1 || h.notifier.events[0] != notifications.EventStageChanged {
		t.Fatalf("expected one stage change notification for the monitor upsert, got %v", h.notifier.events)
	}
}
