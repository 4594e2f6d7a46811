// Package session keeps server-side login sessions. The client only ever
// holds the opaque session id.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/observability"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string    `json:"id"`
	User      user.User `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Store interface {
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Load(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

type Manager struct {
	store  Store
	maxAge time.Duration
	prom   *observability.Prom
	now    func() time.Time
}

func NewManager(store Store, maxAge time.Duration, prom *observability.Prom) *Manager {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	return &Manager{
		store:  store,
		maxAge: maxAge,
		prom:   prom,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// Login starts a new session for u. The user is sanitized before it is
// stored.
func (m *Manager) Login(ctx context.Context, u user.User) (Session, error) {
	id, err := newID()
	if err != nil {
		return Session{}, err
	}

	now := m.now()
	s := Session{
		ID:        id,
		User:      u.Sanitize(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.maxAge),
	}

	err = m.store.Save(ctx, s, m.maxAge)
	m.prom.ObserveSession("login", err)
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// Refresh replaces the user snapshot of an existing session, keeping its
// expiry.
func (m *Manager) Refresh(ctx context.Context, id string, u user.User) (Session, error) {
	s, err := m.Current(ctx, id)
	if err != nil {
		return Session{}, err
	}

	s.User = u.Sanitize()

	ttl := s.ExpiresAt.Sub(m.now())
	err = m.store.Save(ctx, s, ttl)
	m.prom.ObserveSession("refresh", err)
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

func (m *Manager) Current(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNotFound
	}

	s, err := m.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.prom.ObserveSession("load", err)
		}
		return Session{}, err
	}

	if !m.now().Before(s.ExpiresAt) {
		_ = m.store.Delete(ctx, id)
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	err := m.store.Delete(ctx, id)
	m.prom.ObserveSession("logout", err)
	return err
}

func newID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
