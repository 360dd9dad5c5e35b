package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"jobtrail/internal/classifier"
	"jobtrail/internal/mailbox"
	"jobtrail/internal/notifications"
	"jobtrail/internal/registry"
	"jobtrail/internal/services"
	"jobtrail/internal/stage"
	"jobtrail/internal/testsupport"
)

func newTestManager(t *testing.T, mb *fakeMailbox, cls *fakeClassifier, opts ...Option) (*Manager, *registry.Registry) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	reg := registry.New()
	opts = append([]Option{WithNotifier(&recordingNotifier{})}, opts...)
	m := NewManager(cfg, mb, cls, reg, nil, opts...)
	t.Cleanup(m.Stop)
	return m, reg
}

func (m *Manager) runDone() chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBackoffDelay(t *testing.T) {
	cases := map[int]time.Duration{
		0: 10 * time.Second,
		1: 10 * time.Second,
		2: 20 * time.Second,
		3: 40 * time.Second,
		4: 60 * time.Second,
		5: 60 * time.Second,
		9: 60 * time.Second,
	}
	for failures, want := range cases {
		if got := backoffDelay(failures); got != want {
			t.Errorf("backoffDelay(%d) = %s, want %s", failures, got, want)
		}
	}
}

func TestSeenSetEvictsOldest(t *testing.T) {
	set := newSeenSet(2)
	set.Add("a")
	set.Add("b")
	set.Add("a")
	set.Add("c")
	if set.Contains("a") {
		t.Fatal("expected oldest id to be evicted")
	}
	if !set.Contains("b") || !set.Contains("c") {
		t.Fatal("expected newest ids to be kept")
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", set.Len())
	}
	if set.Contains("") {
		t.Fatal("empty id must never be reported as seen")
	}
}

func TestStartRequiresAuthentication(t *testing.T) {
	m, _ := newTestManager(t, &fakeMailbox{}, &fakeClassifier{})
	if m.Start() {
		t.Fatal("expected Start to refuse an unauthenticated mailbox")
	}
	if m.Status().IsRunning {
		t.Fatal("expected manager to stay idle")
	}
}

func TestManualScanRequiresAuthentication(t *testing.T) {
	cls := &fakeClassifier{}
	m, _ := newTestManager(t, &fakeMailbox{}, cls)
	_, err := m.ManualScan(context.Background())
	if !errors.Is(err, services.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if cls.callCount() != 0 {
		t.Fatal("classifier must not run without a mailbox")
	}
}

func TestManualScanGatesOnConfidence(t *testing.T) {
	mb := &fakeMailbox{authenticated: true, account: "me@example.com", fetch: func(int) ([]mailbox.RawMessage, error) {
		return []mailbox.RawMessage{
			{ID: "m1", Subject: "low"},
			{ID: "m2", Subject: "threshold"},
			{ID: "m3", Subject: "incomplete"},
		}, nil
	}}
	cls := &fakeClassifier{results: map[string]classifier.Result{
		"low":        {CompanyName: "Acme", JobTitle: "Engineer", InterviewStage: stage.LabelPhoneScreen, Confidence: 25},
		"threshold":  {CompanyName: "Globex", JobTitle: "Analyst", InterviewStage: stage.LabelTechnicalInterview, Confidence: 30},
		"incomplete": {CompanyName: "Initech", InterviewStage: stage.LabelOffer, Confidence: 90},
	}}
	m, reg := newTestManager(t, mb, cls)

	report, err := m.ManualScan(context.Background())
	if err != nil {
		t.Fatalf("ManualScan: %v", err)
	}
	if report.Fetched != 3 || report.Classified != 3 || report.Merged != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one application, got %d", reg.Len())
	}
	app, ok := reg.Find("Globex", "Analyst")
	if !ok || app.Stage != stage.Interview {
		t.Fatalf("expected Globex interview, got %+v (found=%v)", app, ok)
	}
	if _, ok := reg.Find("Acme", "Engineer"); ok {
		t.Fatal("confidence 25 must not be merged")
	}
	if got := m.Status().ProcessedCount; got != 3 {
		t.Fatalf("expected processed count 3, got %d", got)
	}
}

func TestManualScanSkipsSeenMessages(t *testing.T) {
	mb := &fakeMailbox{authenticated: true, fetch: func(int) ([]mailbox.RawMessage, error) {
		return []mailbox.RawMessage{{ID: "m1", Subject: "a"}, {ID: "m2", Subject: "b"}}, nil
	}}
	cls := &fakeClassifier{}
	m, _ := newTestManager(t, mb, cls)

	for i := 0; i < 2; i++ {
		if _, err := m.ManualScan(context.Background()); err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
	}
	if cls.callCount() != 2 {
		t.Fatalf("expected each message classified once, got %d calls", cls.callCount())
	}
	// Seen messages are skipped but still counted so the counter tracks
	// every cycle.
	if m.Processed() != 4 {
		t.Fatalf("expected processed 4, got %d", m.Processed())
	}
}

func TestManualScanMergesUnlabelledResultsAsApplied(t *testing.T) {
	mb := &fakeMailbox{authenticated: true, fetch: func(int) ([]mailbox.RawMessage, error) {
		return []mailbox.RawMessage{{ID: "m1", Subject: "other"}, {ID: "m2", Subject: "none"}}, nil
	}}
	cls := &fakeClassifier{results: map[string]classifier.Result{
		"other": {CompanyName: "Umbrella", JobTitle: "Chemist", InterviewStage: stage.LabelOther, Confidence: 30},
		"none":  {CompanyName: "Hooli", JobTitle: "Designer", Confidence: 30},
	}}
	m, reg := newTestManager(t, mb, cls)

	report, err := m.ManualScan(context.Background())
	if err != nil {
		t.Fatalf("ManualScan: %v", err)
	}
	if report.Merged != 2 || reg.Len() != 2 {
		t.Fatalf("expected both results merged, report %+v registry %d", report, reg.Len())
	}
	for _, key := range [][2]string{{"Umbrella", "Chemist"}, {"Hooli", "Designer"}} {
		app, ok := reg.Find(key[0], key[1])
		if !ok || app.Stage != stage.Applied {
			t.Fatalf("expected %s applied, got %+v (found=%v)", key[0], app, ok)
		}
	}
}

func TestManualScanDoesNotWaitForLoopCycle(t *testing.T) {
	mb := &fakeMailbox{authenticated: true, fetch: func(int) ([]mailbox.RawMessage, error) {
		return []mailbox.RawMessage{{ID: "slow", Subject: "slow"}, {ID: "fast", Subject: "fast"}}, nil
	}}
	cls := &fakeClassifier{
		block:   make(chan struct{}),
		blockOn: "slow",
		results: map[string]classifier.Result{
			"fast": {CompanyName: "Acme", JobTitle: "Engineer", InterviewStage: stage.LabelOffer, Confidence: 80},
		},
	}
	m, reg := newTestManager(t, mb, cls)
	defer close(cls.block)

	if !m.Start() {
		t.Fatal("expected Start to succeed")
	}
	waitFor(t, "loop to block on a message", func() bool { return cls.callCount() == 1 })

	type outcome struct {
		report ScanReport
		err    error
	}
	result := make(chan outcome, 1)
	go func() {
		report, err := m.ManualScan(context.Background())
		result <- outcome{report, err}
	}()

	select {
	case out := <-result:
		if out.err != nil {
			t.Fatalf("ManualScan: %v", out.err)
		}
		if out.report.Fetched != 2 || out.report.Classified != 1 || out.report.Merged != 1 {
			t.Fatalf("unexpected report %+v", out.report)
		}
	case <-time.After(time.Second):
		t.Fatal("ManualScan waited on the loop's in-flight cycle")
	}
	if app, ok := reg.Find("Acme", "Engineer"); !ok || app.Stage != stage.Offer {
		t.Fatalf("expected Acme offer, got %+v (found=%v)", app, ok)
	}
}

func TestManualScanLeavesBackoffUntouched(t *testing.T) {
	mb := &fakeMailbox{authenticated: true}
	m, _ := newTestManager(t, mb, &fakeClassifier{})
	m.failures = 2

	if _, err := m.ManualScan(context.Background()); err != nil {
		t.Fatalf("ManualScan: %v", err)
	}
	if m.Status().ConsecutiveFailures != 2 {
		t.Fatalf("expected failure counter to stay at 2, got %d", m.Status().ConsecutiveFailures)
	}
}

func TestLoopBacksOffAndResets(t *testing.T) {
	// Five failures, one success, one failure.
	mb := &fakeMailbox{authenticated: true, fetch: func(call int) ([]mailbox.RawMessage, error) {
		if call == 6 {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrFetch, "test", "fetch", fmt.Sprintf("call %d", call), nil)
	}}

	var (
		mu    sync.Mutex
		waits []time.Duration
	)
	done := make(chan struct{})
	sleeper := func(ctx context.Context, d time.Duration) bool {
		mu.Lock()
		defer mu.Unlock()
		waits = append(waits, d)
		if len(waits) == 7 {
			close(done)
			return false
		}
		return true
	}
	m, _ := newTestManager(t, mb, &fakeClassifier{}, WithSleeper(sleeper))

	if !m.Start() {
		t.Fatal("expected Start to succeed")
	}
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not complete expected cycles")
	}

	want := []time.Duration{
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		60 * time.Second,
		60 * time.Second,
		5 * time.Second,
		10 * time.Second,
	}
	mu.Lock()
	defer mu.Unlock()
	if len(waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("wait %d: expected %s, got %s (all: %v)", i, want[i], waits[i], waits)
		}
	}
}

func TestLoopStopsOnExpiredAuthorization(t *testing.T) {
	mb := &fakeMailbox{authenticated: true, fetch: func(int) ([]mailbox.RawMessage, error) {
		return nil, services.Wrap(services.ErrAuthExpired, "test", "fetch", "", errors.New("invalid_grant"))
	}}
	notifier := &recordingNotifier{}
	m, _ := newTestManager(t, mb, &fakeClassifier{}, WithNotifier(notifier), WithSleeper(func(context.Context, time.Duration) bool {
		t.Error("loop must not sleep after de-authorization")
		return false
	}))

	if !m.Start() {
		t.Fatal("expected Start to succeed")
	}
	waitFor(t, "monitor to go idle", func() bool { return !m.Running() })

	events := notifier.recorded()
	if len(events) != 1 || events[0] != notifications.EventMonitorStopped {
		t.Fatalf("expected monitor stopped notification, got %v", events)
	}
	if m.Start() {
		t.Fatal("expected restart to be refused until re-authentication")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	mb := &fakeMailbox{authenticated: true}
	block := make(chan struct{})
	defer close(block)
	m, _ := newTestManager(t, mb, &fakeClassifier{}, WithSleeper(func(ctx context.Context, d time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-block:
			return false
		}
	}))

	if !m.Start() || !m.Start() {
		t.Fatal("expected Start to report running")
	}
	waitFor(t, "first poll", func() bool { return mb.fetchCalls() >= 1 })
	if calls := mb.fetchCalls(); calls != 1 {
		t.Fatalf("expected a single loop, got %d fetches", calls)
	}
	m.Stop()
	if m.Running() {
		t.Fatal("expected idle after Stop")
	}
}

func TestStopHonoursTimeout(t *testing.T) {
	mb := &fakeMailbox{authenticated: true, fetch: func(int) ([]mailbox.RawMessage, error) {
		return []mailbox.RawMessage{{ID: "slow", Subject: "slow"}}, nil
	}}
	cls := &fakeClassifier{block: make(chan struct{})}
	m, _ := newTestManager(t, mb, cls)
	m.stopTimeout = 50 * time.Millisecond

	if !m.Start() {
		t.Fatal("expected Start to succeed")
	}
	waitFor(t, "classification to begin", func() bool { return cls.callCount() == 1 })
	done := m.runDone()

	started := time.Now()
	m.Stop()
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("Stop waited %s, expected bounded wait", elapsed)
	}
	if m.Status().IsRunning {
		t.Fatal("expected idle after Stop")
	}
	close(cls.block)
	<-done
	if m.Processed() != 0 {
		t.Fatal("interrupted message must not be counted")
	}
}

func TestRestartAfterStopTimeout(t *testing.T) {
	mb := &fakeMailbox{authenticated: true, fetch: func(int) ([]mailbox.RawMessage, error) {
		return []mailbox.RawMessage{{ID: "slow", Subject: "slow"}}, nil
	}}
	cls := &fakeClassifier{block: make(chan struct{})}
	m, _ := newTestManager(t, mb, cls, WithSleeper(func(ctx context.Context, _ time.Duration) bool {
		<-ctx.Done()
		return false
	}))
	m.stopTimeout = 50 * time.Millisecond

	if !m.Start() {
		t.Fatal("expected Start to succeed")
	}
	waitFor(t, "classification to begin", func() bool { return cls.callCount() == 1 })
	first := m.runDone()
	m.Stop()

	if !m.Start() {
		t.Fatal("expected restart while the previous loop is still finishing")
	}
	second := m.runDone()
	if first == second {
		t.Fatal("expected each run to have its own completion channel")
	}
	waitFor(t, "second loop to poll", func() bool { return mb.fetchCalls() >= 2 })

	close(cls.block)
	select {
	case <-first:
	case <-time.After(3 * time.Second):
		t.Fatal("previous loop did not exit after its classification returned")
	}
	if !m.Running() {
		t.Fatal("previous loop exiting must not stop the new one")
	}

	m.Stop()
	select {
	case <-second:
	case <-time.After(3 * time.Second):
		t.Fatal("second loop did not exit after Stop")
	}
}

func TestStatusReportsMailboxAndClassifier(t *testing.T) {
	mb := &fakeMailbox{authenticated: true, account: "me@example.com"}
	m, _ := newTestManager(t, mb, &fakeClassifier{})
	status := m.Status()
	if !status.MailboxConnected || status.ConnectedAccount != "me@example.com" {
		t.Fatalf("unexpected mailbox status %+v", status)
	}
	if !status.ClassifierAvailable || status.Classifier != "fake" {
		t.Fatalf("unexpected classifier status %+v", status)
	}
	if status.PollIntervalSeconds != 5 {
		t.Fatalf("expected 5s poll interval, got %d", status.PollIntervalSeconds)
	}
}

func TestStatusHeuristicIsNotAModel(t *testing.T) {
	m, _ := newTestManager(t, &fakeMailbox{}, &fakeClassifier{name: classifier.ProviderHeuristic})
	status := m.Status()
	if status.ClassifierAvailable {
		t.Fatalf("heuristic fallback reported as model classifier: %+v", status)
	}
	if status.Classifier != classifier.ProviderHeuristic {
		t.Fatalf("classifier = %q", status.Classifier)
	}
}
