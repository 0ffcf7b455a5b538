package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/packrat-app/packrat/internal/models"
)

// State is the current authenticated-identity state of the client.
// Loading is true only while Restore checks a previously saved token.
type State struct {
	IsAuthenticated bool
	UserID          string
	Email           string
	Loading         bool
}

// API is the slice of the HTTP client the session manager needs.
// *client.Client satisfies it.
type API interface {
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Me(ctx context.Context) (*models.User, error)
	SetToken(token string)
}

// TokenStore persists the session token across CLI invocations.
type TokenStore interface {
	SaveToken(token string) error
	LoadToken() (string, error)
	ClearToken() error
}

// Manager wraps the auth backend behind login/logout and exposes the
// current identity. Downstream consumers re-scope by subscribing to state
// changes rather than polling.
type Manager struct {
	api   API
	store TokenStore

	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func NewManager(api API, store TokenStore) *Manager {
	return &Manager{
		api:       api,
		store:     store,
		listeners: make(map[int]func(State)),
	}
}

// Current returns the current session state.
func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange registers a listener called after every state transition. The
// returned func removes the listener; it is idempotent.
func (m *Manager) OnChange(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Restore checks for a previously saved token and validates it against the
// backend. This is the only time Loading is true. An invalid or expired
// token is cleared and the session stays unauthenticated.
func (m *Manager) Restore(ctx context.Context) {
	m.setState(State{Loading: true})

	token, err := m.store.LoadToken()
	if err != nil || token == "" {
		m.setState(State{})
		return
	}

	m.api.SetToken(token)
	user, err := m.api.Me(ctx)
	if err != nil {
		slog.Debug("session restore failed", "error", err)
		m.api.SetToken("")
		_ = m.store.ClearToken()
		m.setState(State{})
		return
	}

	m.setState(State{IsAuthenticated: true, UserID: user.ID, Email: user.Email})
}

// Login authenticates with the backend. It never fails outward: any
// error leaves the session unauthenticated and returns false.
func (m *Manager) Login(ctx context.Context, email, password string) bool {
	token, user, err := m.api.Login(ctx, email, password)
	if err != nil {
		slog.Debug("login failed", "error", err)
		return false
	}

	m.api.SetToken(token)
	if err := m.store.SaveToken(token); err != nil {
		slog.Error("saving token failed", "error", err)
	}

	m.setState(State{IsAuthenticated: true, UserID: user.ID, Email: user.Email})
	return true
}

// Logout clears the session. Idempotent: logging out while logged out is a
// no-op that still leaves the state unauthenticated.
func (m *Manager) Logout() {
	m.api.SetToken("")
	if err := m.store.ClearToken(); err != nil {
		slog.Error("clearing token failed", "error", err)
	}
	m.setState(State{})
}
