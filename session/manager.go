package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dashkit/authcore/auth"
	"github.com/dashkit/authcore/client"
	"github.com/dashkit/authcore/db"
)

// Backend is the slice of the API client the session manager needs.
// *client.Client satisfies it.
type Backend interface {
	Login(ctx context.Context, creds client.Credentials) (*db.Token, *client.Profile, error)
	FetchIdentity(ctx context.Context) (*client.Profile, error)
	Logout(ctx context.Context) error
}

// Manager owns the session state. All mutations go through it; route guards
// and UI code observe transitions via Subscribe and read via Snapshot.
type Manager struct {
	api    Backend
	store  auth.TokenStore
	buffer time.Duration

	mu      sync.Mutex
	current Session
	subs    map[int]func(Session)
	nextSub int
}

// NewManager is the constructor for the session manager. The session starts
// unauthenticated; call Initialize to restore a persisted login.
func NewManager(api Backend, store auth.TokenStore, buffer time.Duration) *Manager {
	return &Manager{
		api:     api,
		store:   store,
		buffer:  buffer,
		current: Session{Status: StatusUnauthenticated},
		subs:    make(map[int]func(Session)),
	}
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe registers a callback invoked on every state transition. The
// returned function unsubscribes; calling it more than once is harmless.
func (m *Manager) Subscribe(fn func(Session)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Initialize restores a persisted session. A non-expired stored token leads
// to an identity fetch; an expired or absent token clears the store and
// settles on unauthenticated without touching the network. Every path ends
// in a concrete status.
func (m *Manager) Initialize(ctx context.Context) error {
	m.setState(Session{Status: StatusLoading})

	tok, err := m.store.Get(ctx)
	if err != nil {
		m.setState(Session{Status: StatusError})
		return fmt.Errorf("failed to load persisted token: %w", err)
	}
	if tok.IsExpired(m.buffer) {
		if tok != nil {
			m.clearStore(ctx)
		}
		m.setState(Session{Status: StatusUnauthenticated})
		return nil
	}

	profile, err := m.api.FetchIdentity(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Identity fetch failed, dropping persisted session")
		m.clearStore(ctx)
		m.setState(Session{Status: StatusUnauthenticated})
		return err
	}

	m.setState(sessionFor(profile))
	log.Info().Str("email", profile.Email).Msg("Session restored")
	return nil
}

// Login authenticates with the backend, persists the returned token pair,
// and resolves the identity.
func (m *Manager) Login(ctx context.Context, creds client.Credentials) error {
	m.setState(Session{Status: StatusLoading})

	tok, profile, err := m.api.Login(ctx, creds)
	if err != nil {
		m.setState(Session{Status: StatusError})
		return err
	}
	if err := m.store.Upsert(ctx, tok); err != nil {
		m.setState(Session{Status: StatusError})
		return fmt.Errorf("failed to persist token pair: %w", err)
	}

	if profile == nil {
		profile, err = m.api.FetchIdentity(ctx)
		if err != nil {
			m.clearStore(ctx)
			m.setState(Session{Status: StatusError})
			return err
		}
	}

	m.setState(sessionFor(profile))
	log.Info().Str("email", profile.Email).Msg("Login completed")
	return nil
}

// Logout ends the session: the server is notified best-effort, the token
// store is cleared, and subscribers see a single transition. Calling it
// again on an already-ended session does nothing.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	alreadyOut := m.current.Status == StatusUnauthenticated
	m.mu.Unlock()

	if !alreadyOut {
		// Do not block teardown on the server's answer.
		go func() {
			if err := m.api.Logout(context.WithoutCancel(ctx)); err != nil {
				log.Debug().Err(err).Msg("Server logout notification failed")
			}
		}()
	}

	m.clearStore(ctx)
	m.setState(Session{Status: StatusUnauthenticated})
}

// HandleAuthFailure is the terminal-auth-failure hook wired into the HTTP
// layer. Concurrent failures against the same dead token coalesce into one
// transition because setState only notifies on change.
func (m *Manager) HandleAuthFailure() {
	m.clearStore(context.Background())
	m.setState(Session{Status: StatusUnauthenticated})
}

func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to clear token store")
	}
}

// setState replaces the session and notifies subscribers, skipping the
// notification when nothing changed. Callbacks run outside the lock.
func (m *Manager) setState(next Session) {
	m.mu.Lock()
	if sameState(m.current, next) {
		m.mu.Unlock()
		return
	}
	m.current = next
	callbacks := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(next)
	}
}

func sameState(a, b Session) bool {
	if a.Status != b.Status || a.Role != b.Role {
		return false
	}
	if (a.User == nil) != (b.User == nil) {
		return false
	}
	if a.User != nil && a.User.ID != b.User.ID {
		return false
	}
	return true
}

func sessionFor(profile *client.Profile) Session {
	return Session{
		User:        profile,
		Role:        profile.Role,
		Permissions: profile.Permissions,
		Status:      StatusAuthenticated,
	}
}
