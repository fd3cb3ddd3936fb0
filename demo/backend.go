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

// Package demo is an in-memory stand-in for the auth, core and vision
// backends. It serves the same REST paths so the console can run and be
// tested without the real services.
package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/logging"
	"github.com/trafficeye/console/core/session"
	"github.com/trafficeye/console/core/users"
)

// TokenTTL is the lifetime of issued tokens.
const TokenTTL = 12 * time.Hour

// Backend holds the demo data set. All methods are safe for concurrent use.
type Backend struct {
	secret string
	now    func() time.Time
	logger logging.Logger

	mu            sync.RWMutex
	accounts      []*account
	types         []api.VehicleType
	vehicles      []*vehicle
	accidents     []*accident
	violations    []*violation
	notifications []*api.Notification
	cameras       []*api.Camera
	nextID        int64
}

// Option customizes a Backend.
type Option func(*Backend)

// WithClock fixes the time used for seeding and token expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// WithLogger sets the logger for mutations.
func WithLogger(l logging.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// New creates a seeded backend that signs its tokens with secret.
func New(secret string, opts ...Option) *Backend {
	b := &Backend{secret: secret, now: time.Now, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	b.seed(b.now())
	return b
}

// Start serves the backend on a loopback port until ctx is done. The
// returned URL serves all three services.
func Start(ctx context.Context, b *Backend) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listening for demo backend: %w", err)
	}
	srv := &http.Server{Handler: b.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.WithError(err).Errorf("demo backend stopped")
		}
	}()
	return "http://" + ln.Addr().String(), nil
}

// Handler returns the REST API of all three services.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth service
	mux.HandleFunc("POST /api/users/login", b.login)
	mux.HandleFunc("POST /api/users/register", b.register)
	mux.HandleFunc("POST /api/users/forgotPassword", b.forgotPassword)
	mux.HandleFunc("POST /api/users/signin", b.signIn)
	mux.Handle("GET /api/users", b.admin(b.listUsers))
	mux.Handle("GET /api/users/{id}", b.admin(b.getUser))
	mux.Handle("PUT /api/users/{id}", b.admin(b.updateUser))
	mux.Handle("DELETE /api/users/{id}", b.admin(b.deleteUser))

	// Core service
	mux.Handle("GET /api/vehicle", b.admin(b.listVehicles))
	mux.Handle("POST /api/vehicle", b.authed(b.createVehicle))
	mux.Handle("GET /api/vehicle/types", b.authed(b.vehicleTypes))
	mux.Handle("GET /api/vehicle/user/{id}", b.self(b.userVehicles))
	mux.Handle("GET /api/vehicle/{id}", b.authed(b.getVehicle))
	mux.Handle("PUT /api/vehicle/{id}", b.authed(b.updateVehicle))
	mux.Handle("DELETE /api/vehicle/{id}", b.authed(b.deleteVehicle))

	mux.Handle("GET /api/accidents/all", b.admin(b.listAccidents))
	mux.Handle("GET /api/accident/user/{id}", b.self(b.userAccidents))
	mux.Handle("GET /api/accident/{id}", b.authed(b.getAccident))
	mux.Handle("PUT /api/accident/{id}", b.admin(b.updateAccident))
	mux.Handle("PUT /api/accident/{id}/approve", b.admin(b.approveAccident))

	mux.Handle("GET /api/violations", b.admin(b.listViolations))
	mux.Handle("GET /api/violations/user/{id}", b.self(b.userViolations))
	mux.Handle("GET /api/violations/{id}", b.authed(b.getViolation))
	mux.Handle("PATCH /api/violations/{id}/status", b.authed(b.setViolationStatus))

	mux.Handle("GET /api/notifications/{id}", b.self(b.listNotifications))
	mux.Handle("PUT /api/notifications/read/{id}", b.authed(b.readNotification))

	// Vision service
	mux.Handle("GET /api/cameras", b.authed(b.listCameras))
	mux.Handle("POST /api/cameras", b.admin(b.createCamera))
	mux.Handle("PUT /api/cameras/{id}", b.admin(b.updateCamera))
	mux.Handle("DELETE /api/cameras/{id}", b.admin(b.deleteCamera))
	mux.Handle("GET /api/cameras/{id}/zones", b.authed(b.cameraZones))
	mux.Handle("PUT /api/cameras/{id}/zones", b.admin(b.setCameraZones))
	mux.Handle("POST /api/chat", b.authed(b.chat))

	return mux
}

// claimsHandler receives the verified caller.
type claimsHandler func(w http.ResponseWriter, r *http.Request, caller session.Claims)

func (b *Backend) authed(h claimsHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := session.ParseToken(token, b.secret, b.now())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		h(w, r, claims)
	})
}

func (b *Backend) admin(h claimsHandler) http.Handler {
	return b.authed(func(w http.ResponseWriter, r *http.Request, caller session.Claims) {
		if !isAdmin(caller) {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		h(w, r, caller)
	})
}

// self guards per-user endpoints: only the user named by {id} or an admin.
func (b *Backend) self(h claimsHandler) http.Handler {
	return b.authed(func(w http.ResponseWriter, r *http.Request, caller session.Claims) {
		if !isAdmin(caller) && r.PathValue("id") != caller.UserID {
			writeError(w, http.StatusForbidden, "not your data")
			return
		}
		h(w, r, caller)
	})
}

func isAdmin(c session.Claims) bool {
	return users.HasRole(&users.Identity{Role: c.Role}, users.RoleAdmin)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	n, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a number")
		return 0, false
	}
	return n, true
}

func callerID(c session.Claims) int64 {
	n, _ := strconv.ParseInt(c.UserID, 10, 64)
	return n
}

func (b *Backend) newID() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) stamp() string {
	return b.now().UTC().Format(time.RFC3339)
}

// Auth

func (b *Backend) accountByEmail(email string) *account {
	for _, a := range b.accounts {
		if strings.EqualFold(a.Email, email) {
			return a
		}
	}
	return nil
}

func (b *Backend) accountByID(id int64) *account {
	for _, a := range b.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	b.mu.RLock()
	a := b.accountByEmail(req.Email)
	var user api.User
	if a != nil {
		user = a.User
	}
	ok := a != nil && a.password == req.Password
	b.mu.RUnlock()

	switch {
	case !ok:
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	case user.Status != api.StatusActive:
		writeError(w, http.StatusForbidden, "account is inactive")
		return
	}
	token, err := b.Token(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.LoginResponse{Token: token, User: &user})
}

// Token issues a signed token for u.
func (b *Backend) Token(u api.User) (string, error) {
	return session.SignToken(session.Claims{
		UserID:    strconv.FormatInt(u.ID, 10),
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		ExpiresAt: b.now().Add(TokenTTL),
	}, b.secret)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "username, email and a password of 8 characters are required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		if strings.EqualFold(a.Email, req.Email) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		if strings.EqualFold(a.Username, req.Username) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
	}
	a := &account{
		User:     api.User{ID: b.newID(), Username: req.Username, Email: req.Email, Role: users.RoleUser, Status: api.StatusActive, CreatedAt: b.stamp()},
		password: req.Password,
	}
	b.accounts = append(b.accounts, a)
	b.logger.WithField("user", a.ID).Infof("demo account registered")
	writeJSON(w, http.StatusCreated, a.User)
}

func (b *Backend) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req api.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	b.mu.RLock()
	a := b.accountByEmail(req.Email)
	b.mu.RUnlock()
	if a == nil {
		writeError(w, http.StatusNotFound, "no account for this email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reset link sent"})
}

func (b *Backend) signIn(w http.ResponseWriter, r *http.Request) {
	var req api.SignInRequest
	if !decode(w, r, &req) {
		return
	}
	claims, err := session.ParseToken(req.Token, b.secret, b.now())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	a := b.accountByID(callerID(claims))
	if a == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, a.User)
}

// Users

func (b *Backend) listUsers(w http.ResponseWriter, _ *http.Request, _ session.Claims) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]api.User, 0, len(b.accounts))
	for _, a := range b.accounts {
		out = append(out, a.User)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	a := b.accountByID(id)
	if a == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, a.User)
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var up api.UserUpdate
	if !decode(w, r, &up) {
		return
	}
	if up.Role != "" && up.Role != users.RoleAdmin && up.Role != users.RoleUser {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	if up.Status != "" && up.Status != api.StatusActive && up.Status != api.StatusInactive {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.accountByID(id)
	if a == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	setIf(&a.Username, up.Username)
	setIf(&a.Email, up.Email)
	setIf(&a.Role, up.Role)
	setIf(&a.Status, up.Status)
	writeJSON(w, http.StatusOK, a.User)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if id == callerID(caller) {
		writeError(w, http.StatusConflict, "you cannot delete your own account")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.accounts)
	b.accounts = slices.DeleteFunc(b.accounts, func(a *account) bool { return a.ID == id })
	if len(b.accounts) == n {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Vehicles

func (b *Backend) vehicleByID(id int64) *vehicle {
	for _, v := range b.vehicles {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// apiVehicle resolves the type and owner of v. Callers hold the lock.
func (b *Backend) apiVehicle(v *vehicle) *api.Vehicle {
	out := &api.Vehicle{ID: v.ID, Plate: v.Plate, Brand: v.Brand, Model: v.Model, Color: v.Color, Year: v.Year}
	for i := range b.types {
		if b.types[i].ID == v.TypeID {
			t := b.types[i]
			out.Type = &t
		}
	}
	if a := b.accountByID(v.OwnerID); a != nil {
		out.Owner = &api.Owner{ID: a.ID, Username: a.Username, Email: a.Email}
	}
	return out
}

func (b *Backend) vehicleList(keep func(*vehicle) bool) []api.Vehicle {
	out := []api.Vehicle{}
	for _, v := range b.vehicles {
		if keep(v) {
			out = append(out, *b.apiVehicle(v))
		}
	}
	return out
}

func (b *Backend) listVehicles(w http.ResponseWriter, _ *http.Request, _ session.Claims) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	writeJSON(w, http.StatusOK, b.vehicleList(func(*vehicle) bool { return true }))
}

func (b *Backend) userVehicles(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	owner, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	writeJSON(w, http.StatusOK, b.vehicleList(func(v *vehicle) bool { return v.OwnerID == owner }))
}

func (b *Backend) vehicleTypes(w http.ResponseWriter, _ *http.Request, _ session.Claims) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	writeJSON(w, http.StatusOK, b.types)
}

// ownVehicle finds a vehicle the caller may see. Callers hold the lock.
func (b *Backend) ownVehicle(w http.ResponseWriter, r *http.Request, caller session.Claims) *vehicle {
	id, ok := pathID(w, r)
	if !ok {
		return nil
	}
	v := b.vehicleByID(id)
	if v == nil {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return nil
	}
	if !isAdmin(caller) && v.OwnerID != callerID(caller) {
		writeError(w, http.StatusForbidden, "not your vehicle")
		return nil
	}
	return v
}

func (b *Backend) getVehicle(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v := b.ownVehicle(w, r, caller); v != nil {
		writeJSON(w, http.StatusOK, b.apiVehicle(v))
	}
}

// checkVehicle applies the backend's business rules. Callers hold the lock.
func (b *Backend) checkVehicle(in api.VehicleInput, self int64) (int, string) {
	if in.Plate == "" || in.Brand == "" || in.Model == "" {
		return http.StatusBadRequest, "plate, brand and model are required"
	}
	if !slices.ContainsFunc(b.types, func(t api.VehicleType) bool { return t.ID == in.TypeID }) {
		return http.StatusBadRequest, "unknown vehicle type"
	}
	if in.OwnerID != 0 && b.accountByID(in.OwnerID) == nil {
		return http.StatusBadRequest, "unknown owner"
	}
	for _, v := range b.vehicles {
		if v.ID != self && strings.EqualFold(v.Plate, in.Plate) {
			return http.StatusConflict, "a vehicle with this plate is already registered"
		}
	}
	return 0, ""
}

func (b *Backend) createVehicle(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	var in api.VehicleInput
	if !decode(w, r, &in) {
		return
	}
	if in.OwnerID == 0 || !isAdmin(caller) {
		in.OwnerID = callerID(caller)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if status, msg := b.checkVehicle(in, 0); status != 0 {
		writeError(w, status, msg)
		return
	}
	v := &vehicle{ID: b.newID(), Plate: in.Plate, Brand: in.Brand, Model: in.Model, Color: in.Color, Year: in.Year, TypeID: in.TypeID, OwnerID: in.OwnerID}
	b.vehicles = append(b.vehicles, v)
	writeJSON(w, http.StatusCreated, b.apiVehicle(v))
}

func (b *Backend) updateVehicle(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	var in api.VehicleInput
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.ownVehicle(w, r, caller)
	if v == nil {
		return
	}
	if in.OwnerID == 0 || !isAdmin(caller) {
		in.OwnerID = v.OwnerID
	}
	if status, msg := b.checkVehicle(in, v.ID); status != 0 {
		writeError(w, status, msg)
		return
	}
	v.Plate, v.Brand, v.Model, v.Color, v.Year, v.TypeID, v.OwnerID = in.Plate, in.Brand, in.Model, in.Color, in.Year, in.TypeID, in.OwnerID
	writeJSON(w, http.StatusOK, b.apiVehicle(v))
}

func (b *Backend) deleteVehicle(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.ownVehicle(w, r, caller)
	if v == nil {
		return
	}
	b.vehicles = slices.DeleteFunc(b.vehicles, func(x *vehicle) bool { return x.ID == v.ID })
	w.WriteHeader(http.StatusNoContent)
}

// Accidents

func (b *Backend) apiAccident(a *accident) api.Accident {
	out := a.Accident
	if v := b.vehicleByID(a.vehicleID); v != nil {
		out.Vehicle = b.apiVehicle(v)
	}
	return out
}

func (b *Backend) ownerOf(vehicleID int64) int64 {
	if v := b.vehicleByID(vehicleID); v != nil {
		return v.OwnerID
	}
	return 0
}

func (b *Backend) accidentList(keep func(*accident) bool) []api.Accident {
	out := []api.Accident{}
	for _, a := range b.accidents {
		if keep(a) {
			out = append(out, b.apiAccident(a))
		}
	}
	return out
}

func (b *Backend) listAccidents(w http.ResponseWriter, _ *http.Request, _ session.Claims) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	writeJSON(w, http.StatusOK, b.accidentList(func(*accident) bool { return true }))
}

func (b *Backend) userAccidents(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	owner, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	writeJSON(w, http.StatusOK, b.accidentList(func(a *accident) bool { return b.ownerOf(a.vehicleID) == owner }))
}

// findAccident finds an accident the caller may see. Callers hold the lock.
func (b *Backend) findAccident(w http.ResponseWriter, r *http.Request, caller session.Claims) *accident {
	id, ok := pathID(w, r)
	if !ok {
		return nil
	}
	for _, a := range b.accidents {
		if a.ID != id {
			continue
		}
		if !isAdmin(caller) && b.ownerOf(a.vehicleID) != callerID(caller) {
			break
		}
		return a
	}
	writeError(w, http.StatusNotFound, "accident not found")
	return nil
}

func (b *Backend) getAccident(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if a := b.findAccident(w, r, caller); a != nil {
		writeJSON(w, http.StatusOK, b.apiAccident(a))
	}
}

func (b *Backend) updateAccident(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	var up api.AccidentUpdate
	if !decode(w, r, &up) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAccident(w, r, caller)
	if a == nil {
		return
	}
	if up.Severity != "" {
		a.Severity = up.Severity
	}
	if up.Status != "" {
		a.Status = up.Status
	}
	a.Description = up.Description
	writeJSON(w, http.StatusOK, b.apiAccident(a))
}

func (b *Backend) approveAccident(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findAccident(w, r, caller)
	if a == nil {
		return
	}
	if a.Approved {
		writeError(w, http.StatusConflict, "accident already approved")
		return
	}
	a.Approved = true
	b.notifyLocked(b.ownerOf(a.vehicleID), "Accident approved", fmt.Sprintf("Accident #%d at %s was approved.", a.ID, a.Location))
	writeJSON(w, http.StatusOK, b.apiAccident(a))
}

// Violations

func (b *Backend) apiViolation(v *violation) api.Violation {
	out := v.Violation
	if veh := b.vehicleByID(v.vehicleID); veh != nil {
		out.Vehicle = b.apiVehicle(veh)
		out.Plate = veh.Plate
	}
	return out
}

func (b *Backend) violationList(keep func(*violation) bool) []api.Violation {
	out := []api.Violation{}
	for _, v := range b.violations {
		if keep(v) {
			out = append(out, b.apiViolation(v))
		}
	}
	return out
}

func (b *Backend) listViolations(w http.ResponseWriter, _ *http.Request, _ session.Claims) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	writeJSON(w, http.StatusOK, b.violationList(func(*violation) bool { return true }))
}

func (b *Backend) userViolations(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	owner, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	writeJSON(w, http.StatusOK, b.violationList(func(v *violation) bool { return b.ownerOf(v.vehicleID) == owner }))
}

func (b *Backend) findViolation(w http.ResponseWriter, r *http.Request, caller session.Claims) *violation {
	id, ok := pathID(w, r)
	if !ok {
		return nil
	}
	for _, v := range b.violations {
		if v.ID != id {
			continue
		}
		if !isAdmin(caller) && b.ownerOf(v.vehicleID) != callerID(caller) {
			break
		}
		return v
	}
	writeError(w, http.StatusNotFound, "violation not found")
	return nil
}

func (b *Backend) getViolation(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v := b.findViolation(w, r, caller); v != nil {
		writeJSON(w, http.StatusOK, b.apiViolation(v))
	}
}

func (b *Backend) setViolationStatus(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	var up api.ViolationStatusUpdate
	if !decode(w, r, &up) {
		return
	}
	switch up.Status {
	case api.ViolationPending, api.ViolationPaid, api.ViolationContested:
	default:
		writeError(w, http.StatusBadRequest, "unknown violation status")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.findViolation(w, r, caller)
	if v == nil {
		return
	}
	if !isAdmin(caller) && !(v.Status == api.ViolationPending && up.Status == api.ViolationContested) {
		writeError(w, http.StatusForbidden, "only pending violations can be contested")
		return
	}
	v.Status = up.Status
	writeJSON(w, http.StatusOK, b.apiViolation(v))
}

// Notifications

// notifyLocked adds a notification for user. Callers hold the write lock.
func (b *Backend) notifyLocked(user int64, title, msg string) {
	if user == 0 {
		return
	}
	b.notifications = append(b.notifications, &api.Notification{
		ID: b.newID(), UserID: user, Title: title, Message: msg, CreatedAt: b.stamp(),
	})
}

// Notify adds a notification for a user, as the detection pipeline would.
func (b *Backend) Notify(user int64, title, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifyLocked(user, title, msg)
}

func (b *Backend) listNotifications(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	user, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.RLock()
	out := []api.Notification{}
	for _, n := range b.notifications {
		if n.UserID == user {
			out = append(out, *n)
		}
	}
	b.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) readNotification(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.notifications {
		if n.ID == id && (n.UserID == callerID(caller) || isAdmin(caller)) {
			n.Read = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "notification not found")
}

// Cameras

func (b *Backend) listCameras(w http.ResponseWriter, _ *http.Request, _ session.Claims) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]api.Camera, 0, len(b.cameras))
	for _, c := range b.cameras {
		out = append(out, *c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) cameraByID(id int64) *api.Camera {
	for _, c := range b.cameras {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (b *Backend) createCamera(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	var cam api.Camera
	if !decode(w, r, &cam) {
		return
	}
	if cam.Name == "" || cam.StreamURL == "" {
		writeError(w, http.StatusBadRequest, "name and streamUrl are required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cam.ID = b.newID()
	b.cameras = append(b.cameras, &cam)
	writeJSON(w, http.StatusCreated, cam)
}

func (b *Backend) updateCamera(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in api.Camera
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.cameraByID(id)
	if c == nil {
		writeError(w, http.StatusNotFound, "camera not found")
		return
	}
	zones := c.Zones
	*c = in
	c.ID = id
	if in.Zones == nil {
		c.Zones = zones
	}
	writeJSON(w, http.StatusOK, c)
}

func (b *Backend) deleteCamera(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.cameras)
	b.cameras = slices.DeleteFunc(b.cameras, func(c *api.Camera) bool { return c.ID == id })
	if len(b.cameras) == n {
		writeError(w, http.StatusNotFound, "camera not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) cameraZones(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	c := b.cameraByID(id)
	if c == nil {
		writeError(w, http.StatusNotFound, "camera not found")
		return
	}
	zones := c.Zones
	if zones == nil {
		zones = []api.Zone{}
	}
	writeJSON(w, http.StatusOK, zones)
}

func (b *Backend) setCameraZones(w http.ResponseWriter, r *http.Request, _ session.Claims) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var zones []api.Zone
	if !decode(w, r, &zones) {
		return
	}
	for _, z := range zones {
		if len(z.Points) < 3 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("zone %q needs at least 3 points", z.Name))
			return
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.cameraByID(id)
	if c == nil {
		writeError(w, http.StatusNotFound, "camera not found")
		return
	}
	for i := range zones {
		if zones[i].ID == 0 {
			zones[i].ID = b.newID()
		}
	}
	c.Zones = zones
	w.WriteHeader(http.StatusNoContent)
}

// chat answers from the data set with a few canned intents.
func (b *Backend) chat(w http.ResponseWriter, r *http.Request, caller session.Claims) {
	var req api.ChatRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, api.ChatReply{Reply: b.answer(req.Message, caller)})
}

func (b *Backend) answer(message string, caller session.Claims) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	mine := func(vehicleID int64) bool { return isAdmin(caller) || b.ownerOf(vehicleID) == callerID(caller) }
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "accident"):
		total, pending := 0, 0
		for _, a := range b.accidents {
			if mine(a.vehicleID) {
				total++
				if !a.Approved {
					pending++
				}
			}
		}
		return fmt.Sprintf("There are %d accidents on record, %d of them awaiting approval.", total, pending)
	case strings.Contains(msg, "violation") || strings.Contains(msg, "fine"):
		total, due := 0, 0.0
		for _, v := range b.violations {
			if mine(v.vehicleID) {
				total++
				if v.Status == api.ViolationPending {
					due += v.Fine
				}
			}
		}
		return fmt.Sprintf("There are %d violations on record with %.2f in unpaid fines.", total, due)
	case strings.Contains(msg, "vehicle") || strings.Contains(msg, "car"):
		n := 0
		for _, v := range b.vehicles {
			if mine(v.ID) {
				n++
			}
		}
		return fmt.Sprintf("%d vehicles are registered.", n)
	case strings.Contains(msg, "camera"):
		active := 0
		for _, c := range b.cameras {
			if c.Active {
				active++
			}
		}
		return fmt.Sprintf("%d of %d cameras are streaming.", active, len(b.cameras))
	}
	return "I can answer questions about accidents, violations, vehicles and cameras."
}
