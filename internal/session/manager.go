package session

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"go.uber.org/zap"
)

const DefaultTokenParam = "token"

// TokenStore persists the raw token under a fixed key.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context) error
}

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// Manager owns the single session of a running client. It is created empty,
// populated by Initialize or Login, and cleared by Logout. Consumers receive
// it by injection and only read the current credential.
//
// Expiry is checked when a token is about to be installed, never in the
// background: an installed credential stays until Logout or the next Login.
type Manager struct {
	store      TokenStore
	log        *zap.Logger
	now        func() time.Time
	tokenParam string

	// opMu serializes Login/Logout so memory and storage change together.
	opMu        sync.Mutex
	mu          sync.RWMutex
	credential  *domain.Credential
	initialized bool
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithTokenParam sets the query parameter that carries the OAuth hand-off token.
func WithTokenParam(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.tokenParam = name
		}
	}
}

func NewManager(store TokenStore, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		log:        zap.NewNop(),
		now:        time.Now,
		tokenParam: DefaultTokenParam,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login installs raw as the session credential. A token that cannot be
// decoded, or whose expiry is at or before now, logs the session out instead;
// no partial session is ever installed. It reports whether the caller is
// authenticated afterwards.
func (m *Manager) Login(ctx context.Context, raw string) bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cred, err := Decode(raw, m.now())
	if err != nil {
		m.log.Info("discarding unusable token", zap.Error(err))
		m.clear(ctx)
		return false
	}

	if err := m.store.SaveToken(ctx, raw); err != nil {
		m.log.Warn("persist session token", zap.Error(err))
	}

	m.mu.Lock()
	m.credential = &cred
	m.mu.Unlock()
	m.log.Info("session established",
		zap.String("subject", cred.Identity.Email),
		zap.Time("expires_at", cred.ExpiresAt),
	)
	return true
}

// Logout clears the session and the persisted token. Safe to call at any time.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.clear(ctx)
}

func (m *Manager) clear(ctx context.Context) {
	m.mu.Lock()
	wasAuthenticated := m.credential != nil
	m.credential = nil
	m.mu.Unlock()

	if err := m.store.DeleteToken(ctx); err != nil {
		m.log.Warn("remove persisted session token", zap.Error(err))
	}
	if wasAuthenticated {
		m.log.Info("session cleared")
	}
}

// Initialize restores the session at process start. A token delivered in
// location's query (the OAuth redirect hand-off) wins over a persisted one;
// only one source is used. The returned URL is location without the token
// parameter, so it can be shown or reloaded without replaying the token.
//
// Later calls only honour a URL-delivered token.
func (m *Manager) Initialize(ctx context.Context, location *url.URL) *url.URL {
	m.mu.Lock()
	first := !m.initialized
	m.initialized = true
	m.mu.Unlock()

	if token := m.urlToken(location); token != "" {
		m.Login(ctx, token)
		return StripToken(location, m.tokenParam)
	}
	if !first {
		return StripToken(location, m.tokenParam)
	}

	stored, err := m.store.LoadToken(ctx)
	if err != nil {
		m.log.Warn("load persisted session token", zap.Error(err))
		return StripToken(location, m.tokenParam)
	}
	if stored != "" {
		m.Login(ctx, stored)
	}
	return StripToken(location, m.tokenParam)
}

// HandleRedirect consumes a token delivered by the OAuth redirect. Without a
// token in location the session is left untouched.
func (m *Manager) HandleRedirect(ctx context.Context, location *url.URL) (*url.URL, bool) {
	if token := m.urlToken(location); token != "" {
		ok := m.Login(ctx, token)
		return StripToken(location, m.tokenParam), ok
	}
	return StripToken(location, m.tokenParam), m.State() == StateAuthenticated
}

func (m *Manager) urlToken(location *url.URL) string {
	if location == nil {
		return ""
	}
	return location.Query().Get(m.tokenParam)
}

func (m *Manager) CurrentToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credential == nil {
		return "", false
	}
	return m.credential.Raw, true
}

func (m *Manager) CurrentIdentity() (domain.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credential == nil {
		return domain.Identity{}, false
	}
	return m.credential.Identity, true
}

func (m *Manager) Credential() (domain.Credential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credential == nil {
		return domain.Credential{}, false
	}
	return *m.credential, true
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credential == nil {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

// StripToken returns a copy of location without the param query parameter.
func StripToken(location *url.URL, param string) *url.URL {
	if location == nil {
		return nil
	}
	out := *location
	if out.User != nil {
		user := *out.User
		out.User = &user
	}
	q := out.Query()
	if _, ok := q[param]; ok {
		q.Del(param)
		out.RawQuery = q.Encode()
	}
	return &out
}
