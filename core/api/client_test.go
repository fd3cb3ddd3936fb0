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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trafficeye/console/core/config"
	"github.com/trafficeye/console/core/users"
)

type recordedCall struct {
	service string
	method  string
	status  int
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (o *recordingObserver) ObserveBackendCall(service, method string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, recordedCall{service, method, status})
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	services := config.ServicesConfig{
		AuthURL:   srv.URL,
		CoreURL:   srv.URL + "/",
		VisionURL: srv.URL,
		Timeout:   "2s",
	}
	return NewClient(services, config.CacheConfig{Size: 8, TTL: "1m"}, opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/vehicle/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "7", r.PathValue("id"))
		writeJSON(w, http.StatusOK, []Vehicle{{ID: 1, Plate: "AB-123-CD", Type: &VehicleType{ID: 1, Name: "car"}}})
	})
	c := newTestClient(t, mux)

	ctx := users.WithIdentity(context.Background(), &users.Identity{UserID: "7", Token: "tok-7"})
	vehicles, err := c.ListUserVehicles(ctx, "7")
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	require.Equal(t, "car", vehicles[0].Type.Name)
	require.Equal(t, "Bearer tok-7", gotAuth)
}

func TestClientMapsErrorBodies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/vehicle", func(w http.ResponseWriter, r *http.Request) {
		var in VehicleInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "AB-123-CD", in.Plate)
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Plate already registered"})
	})
	mux.HandleFunc("GET /api/accident/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Accident not found"})
	})
	obs := &recordingObserver{}
	c := newTestClient(t, mux, WithObserver(obs))
	ctx := context.Background()

	_, err := c.CreateVehicle(ctx, VehicleInput{Plate: "AB-123-CD", TypeID: 1})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, KindConflict, apiErr.Kind)
	require.Equal(t, "Plate already registered", apiErr.Message)

	_, err = c.GetAccident(ctx, 99)
	require.True(t, IsNotFound(err))

	require.Equal(t, []recordedCall{
		{"core", http.MethodPost, http.StatusConflict},
		{"core", http.MethodGet, http.StatusNotFound},
	}, obs.calls)
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	c := NewClient(config.ServicesConfig{CoreURL: addr, Timeout: "1s"}, config.CacheConfig{}, WithObserver(obs))
	_, err := c.ListViolations(context.Background())
	require.Equal(t, KindNetwork, KindOf(err))
	require.Len(t, obs.calls, 1)
	require.Equal(t, 0, obs.calls[0].status)

	_, err = c.ListUsers(context.Background())
	require.Equal(t, KindNetwork, KindOf(err), "missing base URL is reported as a network error")
}

func TestClientCancelledContext(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/violations", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c := newTestClient(t, mux)
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListViolations(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestVehicleTypesAreCached(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/vehicle/types", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, []VehicleType{{ID: 1, Name: "car"}, {ID: 2, Name: "truck"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	services := config.ServicesConfig{AuthURL: srv.URL, CoreURL: srv.URL, VisionURL: srv.URL, Timeout: "2s"}
	c := NewClient(services, config.CacheConfig{Size: 8, TTL: "100ms"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		types, err := c.VehicleTypes(ctx)
		require.NoError(t, err)
		require.Len(t, types, 2)
	}
	require.Equal(t, int32(1), hits.Load())

	time.Sleep(200 * time.Millisecond)
	_, err := c.VehicleTypes(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load(), "expired entries are fetched again")
}

func TestLoginAndViolationStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{Token: "jwt"})
	})
	mux.HandleFunc("PATCH /api/violations/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var body ViolationStatusUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, Violation{ID: 5, Status: body.Status})
	})
	mux.HandleFunc("PUT /api/notifications/read/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	resp, err := c.Login(ctx, LoginRequest{Email: "a@b.c", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, "jwt", resp.Token)

	_, err = c.Login(ctx, LoginRequest{Email: "a@b.c", Password: "nope"})
	require.Equal(t, KindUnauthorized, KindOf(err))
	require.Equal(t, "Invalid credentials", Message(err))

	v, err := c.SetViolationStatus(ctx, 5, ViolationPaid)
	require.NoError(t, err)
	require.Equal(t, ViolationPaid, v.Status)

	require.NoError(t, c.MarkNotificationRead(ctx, 3))
}
