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
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/safehtml"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/pages"
	"github.com/trafficeye/console/core/query"
	"github.com/trafficeye/console/core/rendering"
	"github.com/trafficeye/console/core/session"
	"github.com/trafficeye/console/core/views"
)

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, rendering.PageLanding, views.BuildLanding(s.chrome(w, r, "Dashboard")))
}

// handleList serves one host page: fetch, filter, paginate and render.
func (s *Server) handleList(p pages.Page) http.HandlerFunc {
	meta := p.Meta()
	return func(w http.ResponseWriter, r *http.Request) {
		timing := NewTimingCollector()
		q := query.NewQuery(r.URL)

		loadStart := time.Now()
		props := p.Load(r.Context(), identity(r), q)
		timing.Record("load", time.Since(loadStart))

		vmStart := time.Now()
		vm := views.ListPageViewModel{
			Chrome:    s.chrome(w, r, meta.Title),
			Table:     views.BuildTableViewModel(props),
			ExportURL: q.WithPath(meta.Path + "/export.pdf"),
		}
		if meta.NewURL != "" {
			vm.HasNew = true
			vm.NewURL = safehtml.URLSanitized(meta.NewURL)
			vm.NewLabel = meta.NewLabel
		}
		timing.Record("build", time.Since(vmStart))

		if props.Error != "" {
			s.log(r).WithField("page", meta.Name).Warnf("list fetch failed: %s", props.Error)
		}
		s.render(w, r, http.StatusOK, rendering.PageList, vm)
		s.log(r).WithFields(timing.Fields()).Debugf("rendered %s", meta.Name)
	}
}

// handleExport renders every filtered record of a list page as a PDF.
func (s *Server) handleExport(p pages.Page) http.HandlerFunc {
	meta := p.Meta()
	return func(w http.ResponseWriter, r *http.Request) {
		q := query.NewQuery(r.URL)
		headers, rows, err := p.Rows(r.Context(), identity(r), q)
		if err != nil {
			s.backendError(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := s.exporter.Table(&buf, meta.Title, headers, rows); err != nil {
			s.log(r).WithError(err).Errorf("exporting %s", meta.Name)
			s.errorPage(w, r, http.StatusInternalServerError, "The export could not be generated.")
			return
		}
		s.writePDF(w, r, fmt.Sprintf("%s-%s.pdf", meta.Name, s.now().Format("20060102")), &buf)
	}
}

func (s *Server) writePDF(w http.ResponseWriter, r *http.Request, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.log(r).WithError(err).Debugf("writing pdf")
	}
}

// returnTo is the local URL a mutation redirects to.
func returnTo(r *http.Request, fallback string) string {
	return session.SafeNext(r.FormValue("next"), fallback)
}

// confirm renders the confirm page for a destructive action posted back to
// the current path.
func (s *Server) confirm(w http.ResponseWriter, r *http.Request, title, message, fallback string) {
	next := session.SafeNext(r.URL.Query().Get("next"), fallback)
	s.render(w, r, http.StatusOK, rendering.PageConfirm, views.ConfirmViewModel{
		Chrome:    s.chrome(w, r, title),
		Message:   message,
		Action:    safehtml.URLSanitized(r.URL.Path),
		Next:      next,
		CancelURL: safehtml.URLSanitized(next),
	})
}

// mutate runs a backend change and redirects back with the notice fn
// returns. A failure is shown on the page the user returns to; the
// refetched list still carries the old value.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fallback string, fn func(ctx context.Context) (string, error)) {
	next := returnTo(r, fallback)
	notice, err := fn(r.Context())
	if err != nil {
		if api.KindOf(err) == api.KindUnauthorized {
			s.backendError(w, r, err)
			return
		}
		s.log(r).WithError(err).Warnf("mutation failed")
		setFlash(w, flashAlert, api.Message(err))
	} else if notice != "" {
		setFlash(w, flashNotice, notice)
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleToggleRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown user.")
		return
	}
	s.mutate(w, r, "/users", func(ctx context.Context) (string, error) {
		u, err := s.client.GetUser(ctx, userID)
		if err != nil {
			return "", err
		}
		role := pages.FlipRole(u.Role)
		if _, err := s.client.UpdateUser(ctx, userID, api.UserUpdate{Role: role}); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is now %s.", u.Username, strings.ToLower(role)), nil
	})
}

func (s *Server) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown user.")
		return
	}
	if fmt.Sprint(userID) == identity(r).UserID {
		setFlash(w, flashAlert, "You cannot deactivate your own account.")
		http.Redirect(w, r, returnTo(r, "/users"), http.StatusSeeOther)
		return
	}
	s.mutate(w, r, "/users", func(ctx context.Context) (string, error) {
		u, err := s.client.GetUser(ctx, userID)
		if err != nil {
			return "", err
		}
		status := pages.FlipStatus(u.Status)
		if _, err := s.client.UpdateUser(ctx, userID, api.UserUpdate{Status: status}); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is now %s.", u.Username, strings.ToLower(status)), nil
	})
}

func (s *Server) handleConfirmDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown user.")
		return
	}
	u, err := s.client.GetUser(r.Context(), userID)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.confirm(w, r, "Delete user", fmt.Sprintf("Delete the account of %s (%s)? This cannot be undone.", u.Username, u.Email), "/users")
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown user.")
		return
	}
	s.mutate(w, r, "/users", func(ctx context.Context) (string, error) {
		return "User deleted.", s.client.DeleteUser(ctx, userID)
	})
}

func (s *Server) handleConfirmDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := s.ownedVehicle(w, r)
	if !ok {
		return
	}
	s.confirm(w, r, "Delete vehicle", fmt.Sprintf("Delete vehicle %s (%s %s)?", vehicle.Plate, vehicle.Brand, vehicle.Model), "/vehicles")
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := s.ownedVehicle(w, r)
	if !ok {
		return
	}
	s.mutate(w, r, "/vehicles", func(ctx context.Context) (string, error) {
		return fmt.Sprintf("Vehicle %s deleted.", vehicle.Plate), s.client.DeleteVehicle(ctx, vehicle.ID)
	})
}

func (s *Server) handleConfirmDeleteCamera(w http.ResponseWriter, r *http.Request) {
	cam, ok := s.camera(w, r)
	if !ok {
		return
	}
	s.confirm(w, r, "Delete camera", fmt.Sprintf("Delete camera %s and its %d zones?", cam.Name, len(cam.Zones)), "/cameras")
}

func (s *Server) handleDeleteCamera(w http.ResponseWriter, r *http.Request) {
	cameraID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown camera.")
		return
	}
	s.mutate(w, r, "/cameras", func(ctx context.Context) (string, error) {
		return "Camera deleted.", s.client.DeleteCamera(ctx, cameraID)
	})
}

func (s *Server) handleAccidentApprove(w http.ResponseWriter, r *http.Request) {
	accidentID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown accident.")
		return
	}
	s.mutate(w, r, fmt.Sprintf("/accidents/%d", accidentID), func(ctx context.Context) (string, error) {
		return "Accident approved.", s.client.ApproveAccident(ctx, accidentID)
	})
}

func (s *Server) handleViolationStatus(w http.ResponseWriter, r *http.Request) {
	violationID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown violation.")
		return
	}
	status := strings.ToUpper(r.PathValue("status"))
	known := false
	for _, st := range pages.ViolationStatuses {
		known = known || st == status
	}
	if !known {
		s.errorPage(w, r, http.StatusBadRequest, "Unknown violation status.")
		return
	}

	v, err := s.client.GetViolation(r.Context(), violationID)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	if !pages.CanSetViolationStatus(identity(r), v.Status, status) {
		s.errorPage(w, r, http.StatusForbidden, fmt.Sprintf("A %s violation cannot be marked %s.", strings.ToLower(v.Status), strings.ToLower(status)))
		return
	}
	s.mutate(w, r, fmt.Sprintf("/violations/%d", violationID), func(ctx context.Context) (string, error) {
		_, err := s.client.SetViolationStatus(ctx, violationID, status)
		return fmt.Sprintf("Violation marked %s.", strings.ToLower(status)), err
	})
}
