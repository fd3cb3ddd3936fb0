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

// Package server wires the console's HTTP routes to the host pages, the
// forms and the backend client.
package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/config"
	"github.com/trafficeye/console/core/export"
	"github.com/trafficeye/console/core/logging"
	"github.com/trafficeye/console/core/metrics"
	"github.com/trafficeye/console/core/pages"
	"github.com/trafficeye/console/core/rendering"
	"github.com/trafficeye/console/core/session"
	"github.com/trafficeye/console/core/users"
	"github.com/trafficeye/console/core/views"
)

// chatLimiterCap bounds how many per-session chat limiters are kept.
const chatLimiterCap = 4096

// Server represents the console with all its dependencies
type Server struct {
	cfg      *config.Config
	client   *api.Client
	pages    *pages.Registry
	renderer *rendering.Renderer
	sessions *session.Manager
	exporter *export.Exporter
	metrics  *metrics.Metrics
	logger   logging.Logger

	// polls drops notification polls superseded by a newer one
	polls *api.Latest

	chatLimiters *expirable.LRU[string, *rate.Limiter]

	now func() time.Time
}

// NewServer creates a server for cfg on top of client and sessions.
func NewServer(cfg *config.Config, client *api.Client, sessions *session.Manager) (*Server, error) {
	renderer, err := rendering.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	exporter := export.New()
	exporter.Watermark = cfg.Server.Title

	return &Server{
		cfg:          cfg,
		client:       client,
		pages:        pages.NewRegistry(client),
		renderer:     renderer,
		sessions:     sessions,
		exporter:     exporter,
		logger:       logging.NewNop(),
		polls:        api.NewLatest(),
		chatLimiters: expirable.NewLRU[string, *rate.Limiter](chatLimiterCap, nil, cfg.Session.TTLDuration()),
		now:          time.Now,
	}, nil
}

// SetLogger sets the logger for request and error logging
func (s *Server) SetLogger(l logging.Logger) {
	s.logger = l
}

// SetMetrics sets the Prometheus collectors
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetClock replaces the time source used by forms and exports
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
	s.exporter.Now = now
}

// Pages returns the list page registry.
func (s *Server) Pages() *pages.Registry {
	return s.pages
}

// TimingEntry is one measured step of a request
type TimingEntry struct {
	Operation  string
	DurationMs string
}

// TimingCollector collects timing measurements for various operations
type TimingCollector struct {
	entries []TimingEntry
	start   time.Time
}

// NewTimingCollector creates a new timing collector
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{start: time.Now()}
}

// Record records a timing entry
func (tc *TimingCollector) Record(operation string, duration time.Duration) {
	tc.entries = append(tc.entries, TimingEntry{
		Operation:  operation,
		DurationMs: fmt.Sprintf("%.2f", float64(duration.Microseconds())/1000.0),
	})
}

// GetEntries returns all timing entries
func (tc *TimingCollector) GetEntries() []TimingEntry {
	return tc.entries
}

// TotalMs returns total elapsed time in milliseconds as formatted string
func (tc *TimingCollector) TotalMs() string {
	return fmt.Sprintf("%.2f", float64(time.Since(tc.start).Microseconds())/1000.0)
}

// Fields returns the entries as log fields.
func (tc *TimingCollector) Fields() logging.Fields {
	f := logging.Fields{"total_ms": tc.TotalMs()}
	for _, e := range tc.entries {
		f[e.Operation+"_ms"] = e.DurationMs
	}
	return f
}

// chrome builds the layout data for the current request and consumes the
// pending flash message.
func (s *Server) chrome(w http.ResponseWriter, r *http.Request, title string) views.Chrome {
	c := views.NewChrome(s.cfg.Server.Title, title, r.URL.Path, users.FromContext(r.Context()))
	c.RequestID = RequestIDFrom(r.Context())
	if kind, msg, ok := popFlash(w, r); ok {
		if kind == flashAlert {
			c.Alert = msg
		} else {
			c.Notice = msg
		}
	}
	return c
}

// render executes a page into a buffer first so that a template error never
// leaves a half-written response behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page rendering.Page, vm any) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, page, vm); err != nil {
		s.log(r).WithError(err).Errorf("template rendering error on %s", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.log(r).WithError(err).Debugf("writing response")
	}
}

// errorPage renders a full-page error.
func (s *Server) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, rendering.PageError, views.ErrorViewModel{
		Chrome:  s.chrome(w, r, http.StatusText(status)),
		Status:  status,
		Message: message,
	})
}

// handleAdminOnly refuses a signed-in user on an administrator route.
func (s *Server) handleAdminOnly(w http.ResponseWriter, r *http.Request) {
	s.errorPage(w, r, http.StatusForbidden, "This page requires an administrator account.")
}

// backendError shows a failed backend call. An expired backend token ends
// the session and sends the user back to the login page; a refused one only
// shows the refusal.
func (s *Server) backendError(w http.ResponseWriter, r *http.Request, err error) {
	switch api.KindOf(err) {
	case api.KindUnauthorized:
		if api.StatusOf(err) == http.StatusForbidden {
			s.errorPage(w, r, http.StatusForbidden, api.Message(err))
			return
		}
		if endErr := s.sessions.End(w, r); endErr != nil {
			s.log(r).WithError(endErr).Warnf("ending session")
		}
		http.Redirect(w, r, "/login?next="+urlEscape(r.URL.RequestURI()), http.StatusSeeOther)
	case api.KindNotFound:
		s.errorPage(w, r, http.StatusNotFound, api.Message(err))
	default:
		s.log(r).WithError(err).Warnf("backend call failed")
		s.errorPage(w, r, http.StatusBadGateway, api.Message(err))
	}
}

// pathID reads a numeric path wildcard.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// identity returns the signed-in user. Routes behind RequireLogin always
// have one.
func identity(r *http.Request) *users.Identity {
	return users.FromContext(r.Context())
}
