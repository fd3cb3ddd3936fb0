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

package server

import (
	"net/http"

	"github.com/trafficeye/console/core/rendering"
	"github.com/trafficeye/console/core/session"
)

// Handler returns the console's complete HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	open := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, h))
	}
	login := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, session.RequireLogin(h)))
	}
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, session.RequireAdmin(h, http.HandlerFunc(s.handleAdminOnly))))
	}

	// Infrastructure
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(rendering.Static())))
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	// Authentication
	open("GET /login", s.handleLoginPage)
	open("POST /login", s.handleLogin)
	open("GET /register", s.handleRegisterPage)
	open("POST /register", s.handleRegister)
	open("GET /forgot-password", s.handleForgotPage)
	open("POST /forgot-password", s.handleForgot)
	open("POST /logout", s.handleLogout)

	login("GET /{$}", s.handleLanding)
	open("GET /", func(w http.ResponseWriter, r *http.Request) {
		s.errorPage(w, r, http.StatusNotFound, "The page you asked for does not exist.")
	})

	// List pages and their exports
	for _, p := range s.pages.All() {
		meta := p.Meta()
		register := login
		if meta.AdminOnly {
			register = admin
		}
		register("GET "+meta.Path, s.handleList(p))
		register("GET "+meta.Path+"/export.pdf", s.handleExport(p))
	}

	// Users
	admin("POST /users/{id}/role", s.handleToggleRole)
	admin("POST /users/{id}/status", s.handleToggleStatus)
	admin("GET /users/{id}/delete", s.handleConfirmDeleteUser)
	admin("POST /users/{id}/delete", s.handleDeleteUser)

	// Vehicles
	login("GET /vehicles/new", s.handleVehicleForm)
	login("POST /vehicles/new", s.handleVehicleSave)
	login("GET /vehicles/{id}/edit", s.handleVehicleForm)
	login("POST /vehicles/{id}/edit", s.handleVehicleSave)
	login("GET /vehicles/{id}/delete", s.handleConfirmDeleteVehicle)
	login("POST /vehicles/{id}/delete", s.handleDeleteVehicle)

	// Accidents
	login("GET /accidents/{id}", s.handleAccident)
	admin("POST /accidents/{id}", s.handleAccidentUpdate)
	admin("POST /accidents/{id}/approve", s.handleAccidentApprove)
	login("GET /accidents/{id}/report.pdf", s.handleAccidentReport)

	// Violations
	login("GET /violations/{id}", s.handleViolation)
	login("POST /violations/{id}/status/{status}", s.handleViolationStatus)

	// Cameras
	admin("GET /cameras/new", s.handleCameraForm)
	admin("POST /cameras/new", s.handleCameraSave)
	admin("GET /cameras/{id}/edit", s.handleCameraForm)
	admin("POST /cameras/{id}/edit", s.handleCameraSave)
	admin("GET /cameras/{id}/delete", s.handleConfirmDeleteCamera)
	admin("POST /cameras/{id}/delete", s.handleDeleteCamera)
	admin("GET /cameras/{id}/zones", s.handleZones)
	admin("POST /cameras/{id}/zones", s.handleZoneAdd)
	admin("POST /cameras/{id}/zones/{index}/delete", s.handleZoneRemove)

	// Notifications, chat and statistics
	login("GET /notifications", s.handleNotifications)
	login("GET /notifications/poll", s.handleNotificationsPoll)
	login("POST /notifications/{id}/read", s.handleNotificationRead)
	login("GET /chat", s.handleChat)
	login("POST /chat", s.handleChatSend)
	login("POST /chat/clear", s.handleChatClear)
	login("GET /stats", s.handleStats)

	var h http.Handler = mux
	h = s.sessions.Middleware(h)
	h = s.withRequestLog(h)
	return h
}
