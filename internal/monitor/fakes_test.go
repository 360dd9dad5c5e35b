package monitor

import (
	"context"
	"errors"
	"sync"

	"jobtrail/internal/classifier"
	"jobtrail/internal/mailbox"
	"jobtrail/internal/notifications"
	"jobtrail/internal/services"
)

type fakeMailbox struct {
	mu            sync.Mutex
	authenticated bool
	account       string
	calls         int
	fetch         func(call int) ([]mailbox.RawMessage, error)
}

func (f *fakeMailbox) AuthorizationURL(state string) (string, error) {
	return "https://example.test/auth?state=" + state, nil
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

func (f *fakeMailbox) Account() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account
}

func (f *fakeMailbox) RecentMessages(ctx context.Context, max int) ([]mailbox.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fetch := f.fetch
	f.mu.Unlock()
	if fetch == nil {
		return nil, nil
	}
	msgs, err := fetch(call)
	if errors.Is(err, services.ErrAuthExpired) {
		f.mu.Lock()
		f.authenticated = false
		f.mu.Unlock()
	}
	return msgs, err
}

func (f *fakeMailbox) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeClassifier returns the result keyed by message subject. When block is
// set, calls wait on it; blockOn limits that to one subject.
type fakeClassifier struct {
	mu      sync.Mutex
	name    string
	results map[string]classifier.Result
	calls   int
	block   chan struct{}
	blockOn string
}

func (f *fakeClassifier) Classify(_ context.Context, subject, _, _ string) classifier.Result {
	f.mu.Lock()
	f.calls++
	block := f.block
	if f.blockOn != "" && f.blockOn != subject {
		block = nil
	}
	result := f.results[subject]
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return result
}

func (f *fakeClassifier) Name() string {
	if f.name != "" {
		return f.name
	}
	return "fake"
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
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

func (r *recordingNotifier) recorded() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Event(nil), r.events...)
}
