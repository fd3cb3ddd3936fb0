/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The TrafficEye Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package session keeps signed-in identities in a SQLite-backed session
// store referenced from an HttpOnly cookie.
package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trafficeye/console/core/config"
	"github.com/trafficeye/console/core/logging"
	"github.com/trafficeye/console/core/users"
)

// Manager ties the store to HTTP requests.
type Manager struct {
	store  *Store
	cookie string
	ttl    time.Duration
	secure bool
	secret string
	logger logging.Logger
}

// NewManager creates a session manager.
func NewManager(store *Store, cfg config.SessionConfig, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:  store,
		cookie: cfg.CookieName,
		ttl:    cfg.TTLDuration(),
		secure: cfg.Secure,
		secret: cfg.JWTSecret,
		logger: logger,
	}
}

// Store returns the underlying store.
func (m *Manager) Store() *Store {
	return m.store
}

// Begin starts a session for a backend token and sets the cookie. The
// session never outlives the token.
func (m *Manager) Begin(ctx context.Context, w http.ResponseWriter, token string) (*Session, error) {
	claims, err := ParseToken(token, m.secret, time.Now())
	if err != nil {
		return nil, err
	}

	ttl := m.ttl
	if !claims.ExpiresAt.IsZero() {
		if left := time.Until(claims.ExpiresAt); left < ttl {
			ttl = left
		}
	}

	sess := &Session{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
		Token:    token,
	}
	if err := m.store.Create(ctx, sess, ttl); err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	m.logger.WithFields(logging.Fields{"user": sess.UserID, "role": sess.Role}).Infof("session started")
	return sess, nil
}

// End deletes the request's session and clears the cookie.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	if c, err := r.Cookie(m.cookie); err == nil {
		if err := m.store.Delete(r.Context(), c.Value); err != nil {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Lookup returns the session referenced by the request cookie.
func (m *Manager) Lookup(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookie)
	if err != nil {
		return nil, ErrNotFound
	}
	return m.store.Get(r.Context(), c.Value)
}

type sessionKey struct{}

// Middleware attaches the identity and session of a signed-in request to
// its context. Anonymous requests pass through unchanged.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.Lookup(r)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				m.logger.WithError(err).Warnf("session lookup failed")
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := users.WithIdentity(r.Context(), sess.Identity())
		ctx = context.WithValue(ctx, sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the session attached by Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}

// Identity converts the session to the identity pages read.
func (s *Session) Identity() *users.Identity {
	return &users.Identity{
		UserID:   s.UserID,
		Username: s.Username,
		Email:    s.Email,
		Role:     s.Role,
		Token:    s.Token,
	}
}

// RequireLogin redirects anonymous requests to the login page, keeping the
// original URL in the next parameter.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if users.FromContext(r.Context()) == nil {
			target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin is RequireLogin plus a refusal for non-admins. denied answers
// the refused request; a nil denied writes a plain 403.
func RequireAdmin(next, denied http.Handler) http.Handler {
	return RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !users.FromContext(r.Context()).IsAdmin() {
			if denied == nil {
				http.Error(w, "Forbidden: administrator role required", http.StatusForbidden)
				return
			}
			denied.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// SafeNext returns next when it is a local path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	if u, err := url.Parse(next); err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}

// Cleanup deletes expired sessions every interval until ctx is done.
func (m *Manager) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.store.DeleteExpired(ctx)
			if err != nil {
				m.logger.WithError(err).Warnf("session cleanup failed")
				continue
			}
			if n > 0 {
				m.logger.Debugf("removed %d expired sessions", n)
			}
		}
	}
}
