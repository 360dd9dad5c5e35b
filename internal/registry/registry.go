package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"jobtrail/internal/services"
	"jobtrail/internal/stage"
)

// Application is one tracked job application.
type Application struct {
	ID          int64       `json:"id"`
	Company     string      `json:"company"`
	Position    string      `json:"position"`
	Stage       stage.Stage `json:"stage"`
	LastUpdated time.Time   `json:"last_updated"`
}

// ChangeKind describes what happened to an application.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeStage   ChangeKind = "stage_changed"
	ChangeDeleted ChangeKind = "deleted"
)

// Change is delivered to subscribers after a mutation has been applied.
type Change struct {
	Kind        ChangeKind
	Application Application
	Previous    stage.Stage
	Source      string
}

// Registry is the shared, mutex-protected collection of tracked applications.
// Every read-check-write sequence and id allocation happens under one lock so
// concurrent upserts for the same identity cannot create duplicates.
type Registry struct {
	mu        sync.Mutex
	apps      []*Application
	nextID    int64
	now       func() time.Time
	listeners []func(Change)

	// notifyMu is taken before mu is released so listeners observe changes
	// in the order they were applied.
	notifyMu sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs an empty registry. Ids start at 1.
func New(opts ...Option) *Registry {
	r := &Registry{nextID: 1, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers a listener invoked after each mutation, outside the
// registry lock. Listeners run in mutation order and must not call back into
// the Registry.
func (r *Registry) Subscribe(fn func(Change)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Find returns the application matching company and position case-insensitively.
func (r *Registry) Find(company, position string) (Application, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app := r.findLocked(company, position); app != nil {
		return *app, true
	}
	return Application{}, false
}

// Get returns the application with the given id.
func (r *Registry) Get(id int64) (Application, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, app := r.indexLocked(id); app != nil {
		return *app, true
	}
	return Application{}, false
}

// Upsert merges an incoming stage signal into the application identified by
// company and position, creating it when absent.
func (r *Registry) Upsert(company, position string, incoming stage.Stage) (Application, error) {
	return r.upsert(company, position, incoming, "monitor")
}

// Add is the route-layer upsert. It applies the same merge policy as Upsert.
func (r *Registry) Add(company, position string, incoming stage.Stage) (Application, error) {
	return r.upsert(company, position, incoming, "manual")
}

func (r *Registry) upsert(company, position string, incoming stage.Stage, source string) (Application, error) {
	company = strings.TrimSpace(company)
	position = strings.TrimSpace(position)
	if company == "" || position == "" {
		return Application{}, services.Wrap(services.ErrValidation, "registry", "upsert", "company and position are required", nil)
	}
	if !incoming.Valid() {
		return Application{}, services.Wrap(services.ErrValidation, "registry", "upsert", fmt.Sprintf("invalid stage %q", incoming), nil)
	}

	r.mu.Lock()
	var change *Change
	app := r.findLocked(company, position)
	if app == nil {
		app = &Application{
			ID:          r.nextID,
			Company:     company,
			Position:    position,
			Stage:       incoming,
			LastUpdated: r.now(),
		}
		r.nextID++
		r.apps = append(r.apps, app)
		change = &Change{Kind: ChangeCreated, Application: *app, Source: source}
	} else if merged, changed := stage.Merge(app.Stage, incoming); changed {
		previous := app.Stage
		app.Stage = merged
		app.LastUpdated = r.now()
		change = &Change{Kind: ChangeStage, Application: *app, Previous: previous, Source: source}
	}
	result := *app
	r.unlockAndPublish(change)
	return result, nil
}

// SetStage overrides the stage of an application directly, bypassing the
// merge policy.
func (r *Registry) SetStage(id int64, next stage.Stage) (Application, error) {
	if !next.Valid() {
		return Application{}, services.Wrap(services.ErrValidation, "registry", "set stage", fmt.Sprintf("invalid stage %q", next), nil)
	}

	r.mu.Lock()
	_, app := r.indexLocked(id)
	if app == nil {
		r.mu.Unlock()
		return Application{}, services.Wrap(services.ErrNotFound, "registry", "set stage", fmt.Sprintf("application %d", id), nil)
	}
	var change *Change
	if app.Stage != next {
		previous := app.Stage
		app.Stage = next
		app.LastUpdated = r.now()
		change = &Change{Kind: ChangeStage, Application: *app, Previous: previous, Source: "manual"}
	}
	result := *app
	r.unlockAndPublish(change)
	return result, nil
}

// Delete removes the application with the given id. It reports false when no
// such application exists.
func (r *Registry) Delete(id int64) bool {
	r.mu.Lock()
	idx, app := r.indexLocked(id)
	if app == nil {
		r.mu.Unlock()
		return false
	}
	removed := *app
	r.apps = append(r.apps[:idx], r.apps[idx+1:]...)
	r.unlockAndPublish(&Change{Kind: ChangeDeleted, Application: removed, Previous: removed.Stage, Source: "manual"})
	return true
}

// ListGroupedByStage returns copies of every application bucketed by stage.
// Insertion order is preserved within each bucket and every stage has an
// entry, possibly empty.
func (r *Registry) ListGroupedByStage() map[stage.Stage][]Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	grouped := make(map[stage.Stage][]Application, len(stage.All()))
	for _, s := range stage.All() {
		grouped[s] = []Application{}
	}
	for _, app := range r.apps {
		grouped[app.Stage] = append(grouped[app.Stage], *app)
	}
	return grouped
}

// List returns copies of every application in insertion order.
func (r *Registry) List() []Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Application, 0, len(r.apps))
	for _, app := range r.apps {
		out = append(out, *app)
	}
	return out
}

// Len returns the number of tracked applications.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

// Restore loads previously persisted applications. Entries that match an
// existing identity are merged with the usual policy; new entries keep their
// stored timestamp and receive fresh ids. Listeners are not notified.
func (r *Registry) Restore(apps []Application) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	restored := 0
	for _, stored := range apps {
		company := strings.TrimSpace(stored.Company)
		position := strings.TrimSpace(stored.Position)
		if company == "" || position == "" || !stored.Stage.Valid() {
			continue
		}
		if existing := r.findLocked(company, position); existing != nil {
			if merged, changed := stage.Merge(existing.Stage, stored.Stage); changed {
				existing.Stage = merged
				existing.LastUpdated = r.now()
			}
			continue
		}
		updated := stored.LastUpdated
		if updated.IsZero() {
			updated = r.now()
		}
		r.apps = append(r.apps, &Application{
			ID:          r.nextID,
			Company:     company,
			Position:    position,
			Stage:       stored.Stage,
			LastUpdated: updated,
		})
		r.nextID++
		restored++
	}
	return restored
}

func (r *Registry) findLocked(company, position string) *Application {
	company = strings.TrimSpace(company)
	position = strings.TrimSpace(position)
	for _, app := range r.apps {
		if strings.EqualFold(app.Company, company) && strings.EqualFold(app.Position, position) {
			return app
		}
	}
	return nil
}

func (r *Registry) indexLocked(id int64) (int, *Application) {
	for i, app := range r.apps {
		if app.ID == id {
			return i, app
		}
	}
	return -1, nil
}

// unlockAndPublish releases mu and delivers change to every listener. It must
// be called with mu held.
func (r *Registry) unlockAndPublish(change *Change) {
	if change == nil || len(r.listeners) == 0 {
		r.mu.Unlock()
		return
	}
	listeners := r.listeners
	r.notifyMu.Lock()
	r.mu.Unlock()
	defer r.notifyMu.Unlock()
	for _, fn := range listeners {
		fn(*change)
	}
}
