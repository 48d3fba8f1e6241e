package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/restkeep/stockfeed/internal/core/domain"
	"github.com/restkeep/stockfeed/internal/port"
)

// SessionEvents receives session lifecycle notifications. Callbacks may be
// nil; they are invoked outside the manager's lock, one at a time.
type SessionEvents struct {
	// OnChange fires when the session reaches ready with a resolved user id.
	OnChange func(domain.Session)
	// OnError receives authentication failures.
	OnError func(error)
	// OnSettled fires when the initial loading phase is over, whether or not
	// sign-in succeeded.
	OnSettled func()
}

// SessionManager owns the authentication lifecycle: it listens for
// auth-state changes, signs in (custom token preferred, anonymous fallback)
// when no user is present, and exposes the readiness gate every subscription
// and mutation depends on. Ready and the user id are set atomically; ready
// is never observable without an id.
type SessionManager struct {
	identity port.IdentityProvider
	token    string
	events   SessionEvents

	mu      sync.Mutex
	session domain.Session
	stopped bool
}

func NewSessionManager(identity port.IdentityProvider, token string, events SessionEvents) *SessionManager {
	return &SessionManager{
		identity: identity,
		token:    token,
		events:   events,
	}
}

// Start registers the auth-state listener. The returned handle detaches it;
// it is idempotent, and any callback arriving after teardown is a no-op.
func (m *SessionManager) Start(ctx context.Context) port.Unsubscribe {
	unsub := m.identity.OnAuthStateChanged(func(u *port.User) {
		m.handleAuthState(ctx, u)
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.stopped = true
			m.mu.Unlock()
			unsub()
		})
	}
}

// Session returns the current session state.
func (m *SessionManager) Session() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *SessionManager) handleAuthState(ctx context.Context, u *port.User) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if u != nil && u.UID != "" {
		m.session = domain.Session{UserID: u.UID, Ready: true}
		s := m.session
		m.mu.Unlock()
		if m.events.OnChange != nil {
			m.events.OnChange(s)
		}
		m.settle()
		return
	}
	m.mu.Unlock()

	// Exactly one sign-in attempt per missing-user event. Success re-enters
	// through the provider's next listener fire with the user present.
	var err error
	if m.token != "" {
		err = m.identity.SignInWithCustomToken(ctx, m.token)
	} else {
		err = m.identity.SignInAnonymously(ctx)
	}
	if err != nil {
		m.fail(fmt.Errorf("%w: %v", ErrAuthentication, err))
	}
	m.settle()
}

func (m *SessionManager) fail(err error) {
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if stopped {
		return
	}
	if m.events.OnError != nil {
		m.events.OnError(err)
	}
}

func (m *SessionManager) settle() {
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if stopped {
		return
	}
	if m.events.OnSettled != nil {
		m.events.OnSettled()
	}
}
