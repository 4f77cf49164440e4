// Package session issues and resolves cookie-backed login sessions.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sdfgeoff/ndscore/internal/config"
	"github.com/sdfgeoff/ndscore/internal/httpd"
	"github.com/sdfgeoff/ndscore/internal/storage"
)

// Manager persists sessions through a Store and reads them back out of
// request cookies.
type Manager struct {
	store storage.Store
	cfg   config.SessionConfig
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewManager creates a session manager with the given backing store.
func NewManager(store storage.Store, cfg config.SessionConfig, log *zap.SugaredLogger) *Manager {
	return &Manager{store: store, cfg: cfg, log: log, now: time.Now}
}

// Issue creates a session for the user and returns the Set-Cookie
// header carrying its key.
func (m *Manager) Issue(ctx context.Context, userID int64) (httpd.Header, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return httpd.Header{}, "", err
	}
	key := base64.StdEncoding.EncodeToString(raw)

	now := m.now()
	err := m.store.CreateSession(ctx, storage.SessionData{
		UserID:    userID,
		Key:       key,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	})
	if err != nil {
		return httpd.Header{}, "", err
	}

	header := httpd.Header{
		Name:  "Set-Cookie",
		Value: fmt.Sprintf("%s=%s; SameSite=Strict; Path=/", m.cfg.CookieName, key),
	}
	return header, key, nil
}

// Resolve extracts the caller's session from the request cookies. A
// missing, unknown or expired cookie resolves to nil (anonymous); an
// expired hit also purges every session already past its expiry, so
// cleanup rides on request volume rather than a timer.
func (m *Manager) Resolve(ctx context.Context, req *httpd.Request) *storage.SessionData {
	for _, header := range req.Headers {
		if header.Name != "Cookie" {
			continue
		}
		for _, cookie := range strings.Split(header.Value, ";") {
			name, value, found := strings.Cut(cookie, "=")
			if !found || strings.TrimSpace(name) != m.cfg.CookieName {
				continue
			}

			session, err := m.store.SessionByKey(ctx, strings.TrimSpace(value))
			if err != nil {
				m.log.Warnw("session_lookup_failed", "error", err)
				continue
			}
			if session == nil || m.now().After(session.ExpiresAt) {
				if err := m.store.ClearSessionsExpiredBefore(ctx, m.now()); err != nil {
					m.log.Warnw("session_gc_failed", "error", err)
				}
				continue
			}
			return session
		}
	}
	return nil
}
