package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const authStateTTL = 15 * time.Minute

// authStates tracks OAuth state tokens issued by StartAuth.
type authStates struct {
	mu     sync.Mutex
	now    func() time.Time
	issued map[string]time.Time
}

func newAuthStates(now func() time.Time) *authStates {
	return &authStates{now: now, issued: make(map[string]time.Time)}
}

func (a *authStates) issue() string {
	state := uuid.NewString()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneLocked()
	a.issued[state] = a.now().Add(authStateTTL)
	return state
}

// consume reports whether state was issued and has not expired. A state can
// be consumed once.
func (a *authStates) consume(state string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneLocked()
	if _, ok := a.issued[state]; !ok {
		return false
	}
	delete(a.issued, state)
	return true
}

func (a *authStates) pruneLocked() {
	now := a.now()
	for state, expires := range a.issued {
		if now.After(expires) {
			delete(a.issued, state)
		}
	}
}
