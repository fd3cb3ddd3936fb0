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

// Package api is the REST client for the auth, core and vision backends.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/trafficeye/console/core/config"
	"github.com/trafficeye/console/core/logging"
	"github.com/trafficeye/console/core/users"
)

// Service names a backend.
type Service string

const (
	ServiceAuth   Service = "auth"
	ServiceCore   Service = "core"
	ServiceVision Service = "vision"
)

// Observer receives one call per backend round trip.
type Observer interface {
	ObserveBackendCall(service, method string, status int, d time.Duration)
}

// Client talks to the backends. The bearer token is taken from the
// identity attached to the request context.
type Client struct {
	bases    map[Service]string
	http     *http.Client
	logger   logging.Logger
	observer Observer

	vehicleTypes *expirable.LRU[string, []VehicleType]
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger for request tracing.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for the configured services.
func NewClient(services config.ServicesConfig, cache config.CacheConfig, opts ...Option) *Client {
	size := cache.Size
	if size <= 0 {
		size = 128
	}
	c := &Client{
		bases: map[Service]string{
			ServiceAuth:   strings.TrimRight(services.AuthURL, "/"),
			ServiceCore:   strings.TrimRight(services.CoreURL, "/"),
			ServiceVision: strings.TrimRight(services.VisionURL, "/"),
		},
		http:         &http.Client{Timeout: services.TimeoutDuration()},
		logger:       logging.NewNop(),
		vehicleTypes: expirable.NewLRU[string, []VehicleType](size, nil, cache.TTLDuration()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of a service.
func (c *Client) BaseURL(s Service) string {
	return c.bases[s]
}

// tokenKey overrides the identity token for a single call.
type tokenKey struct{}

// WithToken returns a context whose calls authenticate with token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey{}).(string); ok {
		return t
	}
	if id := users.FromContext(ctx); id != nil {
		return id.Token
	}
	return ""
}

// do performs one JSON round trip. in is encoded as the body when non-nil
// and out is decoded from a 2xx response when non-nil. Non-2xx responses
// become *Error through ParseAPIError.
func (c *Client) do(ctx context.Context, svc Service, method, path string, in, out any) error {
	base, ok := c.bases[svc]
	if !ok || base == "" {
		return &Error{Kind: KindNetwork, Message: fmt.Sprintf("no base URL configured for %s service", svc)}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(svc, method, 0, start)
		c.logger.WithFields(logging.Fields{"service": svc, "method": method, "path": path}).
			WithError(err).Debugf("backend call failed")
		return networkError(err)
	}
	defer resp.Body.Close()
	c.observe(svc, method, resp.StatusCode, start)
	c.logger.WithFields(logging.Fields{
		"service":  svc,
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debugf("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ParseAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "invalid response from " + string(svc) + " service", Err: err}
	}
	return nil
}

func (c *Client) observe(svc Service, method string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveBackendCall(string(svc), method, status, time.Since(start))
	}
}

// Ping checks that a service answers HTTP at all. Any response, even an
// error status, counts as reachable.
func (c *Client) Ping(ctx context.Context, svc Service) (int, error) {
	base := c.bases[svc]
	if base == "" {
		return 0, fmt.Errorf("no base URL configured for %s service", svc)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/", nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(svc, http.MethodGet, 0, start)
		return 0, networkError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	c.observe(svc, http.MethodGet, resp.StatusCode, start)
	return resp.StatusCode, nil
}
