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
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/safehtml"
	"golang.org/x/sync/errgroup"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/forms"
	"github.com/trafficeye/console/core/pages"
	"github.com/trafficeye/console/core/rendering"
	"github.com/trafficeye/console/core/views"
)

var errNotOwner = errors.New("not the owner")

// ownedVehicle loads the vehicle named in the path. Users may only touch
// their own vehicles; admins may touch any.
func (s *Server) ownedVehicle(w http.ResponseWriter, r *http.Request) (*api.Vehicle, bool) {
	vehicleID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown vehicle.")
		return nil, false
	}
	v, err := s.client.GetVehicle(r.Context(), vehicleID)
	if err == nil {
		err = checkOwner(r, v)
	}
	switch {
	case errors.Is(err, errNotOwner):
		s.errorPage(w, r, http.StatusForbidden, "This vehicle belongs to another user.")
		return nil, false
	case err != nil:
		s.backendError(w, r, err)
		return nil, false
	}
	return v, true
}

func checkOwner(r *http.Request, v *api.Vehicle) error {
	id := identity(r)
	if id.IsAdmin() || v.Owner == nil || strconv.FormatInt(v.Owner.ID, 10) == id.UserID {
		return nil
	}
	return errNotOwner
}

// vehicleForm builds the form page. The type list is loaded by the caller;
// typesErr leaves the form usable with an empty select.
func (s *Server) vehicleForm(w http.ResponseWriter, r *http.Request, vehicleID int64, form forms.VehicleForm, types []api.VehicleType, typesErr error, errs forms.Errors) views.VehicleFormViewModel {
	title, action := "Add vehicle", "/vehicles/new"
	if vehicleID > 0 {
		title, action = "Edit vehicle "+form.Plate, fmt.Sprintf("/vehicles/%d/edit", vehicleID)
	}
	vm := views.VehicleFormViewModel{
		Chrome:    s.chrome(w, r, title),
		Editing:   vehicleID > 0,
		Action:    safehtml.URLSanitized(action),
		CancelURL: safehtml.URLSanitized("/vehicles"),
		Form:      form,
		Types:     views.TypeOptions(types, form.TypeID),
		Errors:    errs,
		MaxYear:   s.now().Year() + 1,
	}
	if typesErr != nil {
		vm.TypesError = api.Message(typesErr)
	}
	return vm
}

// handleVehicleForm shows the create or edit form. For an edit the vehicle
// and the type lookup are fetched concurrently.
func (s *Server) handleVehicleForm(w http.ResponseWriter, r *http.Request) {
	var (
		vehicleID int64
		vehicle   *api.Vehicle
		types     []api.VehicleType
		typesErr  error
	)
	if r.PathValue("id") != "" {
		var ok bool
		if vehicleID, ok = pathID(r, "id"); !ok {
			s.errorPage(w, r, http.StatusNotFound, "Unknown vehicle.")
			return
		}
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		types, typesErr = s.client.VehicleTypes(ctx)
		return nil
	})
	if vehicleID > 0 {
		g.Go(func() error {
			v, err := s.client.GetVehicle(ctx, vehicleID)
			if err != nil {
				return err
			}
			if err := checkOwner(r, v); err != nil {
				return err
			}
			vehicle = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, errNotOwner) {
			s.errorPage(w, r, http.StatusForbidden, "This vehicle belongs to another user.")
			return
		}
		s.backendError(w, r, err)
		return
	}

	var form forms.VehicleForm
	if vehicle != nil {
		form = forms.VehicleFormFrom(vehicle)
	}
	s.render(w, r, http.StatusOK, rendering.PageVehicleForm, s.vehicleForm(w, r, vehicleID, form, types, typesErr, nil))
}

func (s *Server) handleVehicleSave(w http.ResponseWriter, r *http.Request) {
	var vehicleID int64
	if r.PathValue("id") != "" {
		v, ok := s.ownedVehicle(w, r)
		if !ok {
			return
		}
		vehicleID = v.ID
	}
	if err := r.ParseForm(); err != nil {
		s.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	id := identity(r)
	form := forms.ParseVehicleForm(r.PostForm)
	if !id.IsAdmin() {
		// Users register vehicles to themselves
		form.OwnerID = id.UserID
	}
	errs := form.Validate(s.now())

	if !errs.Any() {
		var err error
		if vehicleID > 0 {
			_, err = s.client.UpdateVehicle(r.Context(), vehicleID, form.Input())
		} else {
			_, err = s.client.CreateVehicle(r.Context(), form.Input())
		}
		if err == nil {
			setFlash(w, flashNotice, fmt.Sprintf("Vehicle %s saved.", form.Plate))
			http.Redirect(w, r, "/vehicles", http.StatusSeeOther)
			return
		}
		if api.KindOf(err) == api.KindUnauthorized {
			s.backendError(w, r, err)
			return
		}
		errs.Add(forms.FormLevel, api.Message(err))
	}

	types, typesErr := s.client.VehicleTypes(r.Context())
	s.render(w, r, http.StatusUnprocessableEntity, rendering.PageVehicleForm, s.vehicleForm(w, r, vehicleID, form, types, typesErr, errs))
}

// camera finds the camera named in the path. The vision service has no
// single-camera endpoint, so the list is searched.
func (s *Server) camera(w http.ResponseWriter, r *http.Request) (*api.Camera, bool) {
	cameraID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown camera.")
		return nil, false
	}
	cams, err := s.client.ListCameras(r.Context())
	if err != nil {
		s.backendError(w, r, err)
		return nil, false
	}
	for i := range cams {
		if cams[i].ID == cameraID {
			return &cams[i], true
		}
	}
	s.errorPage(w, r, http.StatusNotFound, fmt.Sprintf("Camera %d does not exist.", cameraID))
	return nil, false
}

func (s *Server) cameraForm(w http.ResponseWriter, r *http.Request, form forms.CameraForm, errs forms.Errors) views.CameraFormViewModel {
	title, action := "Add camera", "/cameras/new"
	if form.ID > 0 {
		title, action = "Edit camera "+form.Name, fmt.Sprintf("/cameras/%d/edit", form.ID)
	}
	return views.CameraFormViewModel{
		Chrome:    s.chrome(w, r, title),
		Editing:   form.ID > 0,
		Action:    safehtml.URLSanitized(action),
		CancelURL: safehtml.URLSanitized("/cameras"),
		Form:      form,
		Errors:    errs,
	}
}

func (s *Server) handleCameraForm(w http.ResponseWriter, r *http.Request) {
	form := forms.CameraForm{Active: true}
	if r.PathValue("id") != "" {
		cam, ok := s.camera(w, r)
		if !ok {
			return
		}
		form = forms.CameraFormFrom(cam)
	}
	s.render(w, r, http.StatusOK, rendering.PageCameraForm, s.cameraForm(w, r, form, nil))
}

func (s *Server) handleCameraSave(w http.ResponseWriter, r *http.Request) {
	var existing *api.Camera
	if r.PathValue("id") != "" {
		cam, ok := s.camera(w, r)
		if !ok {
			return
		}
		existing = cam
	}
	if err := r.ParseForm(); err != nil {
		s.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.ParseCameraForm(r.PostForm)
	form.ID = 0
	if existing != nil {
		// The path names the camera, not the posted body
		form.ID = existing.ID
	}

	errs := form.Validate()
	if !errs.Any() {
		cam := form.Camera()
		var err error
		if existing != nil {
			cam.Zones = existing.Zones
			_, err = s.client.UpdateCamera(r.Context(), cam)
		} else {
			_, err = s.client.CreateCamera(r.Context(), cam)
		}
		if err == nil {
			setFlash(w, flashNotice, fmt.Sprintf("Camera %s saved.", form.Name))
			http.Redirect(w, r, "/cameras", http.StatusSeeOther)
			return
		}
		if api.KindOf(err) == api.KindUnauthorized {
			s.backendError(w, r, err)
			return
		}
		errs.Add(forms.FormLevel, api.Message(err))
	}
	s.render(w, r, http.StatusUnprocessableEntity, rendering.PageCameraForm, s.cameraForm(w, r, form, errs))
}

func (s *Server) zonesPage(w http.ResponseWriter, r *http.Request, cam *api.Camera, zones []api.Zone, form forms.ZoneForm, errs forms.Errors) views.ZonesViewModel {
	vm := views.ZonesViewModel{
		Chrome:  s.chrome(w, r, "Zones of "+cam.Name),
		Camera:  *cam,
		Types:   views.Options(forms.ZoneTypes, form.Type),
		Form:    form,
		Errors:  errs,
		Action:  safehtml.URLSanitized(fmt.Sprintf("/cameras/%d/zones", cam.ID)),
		BackURL: safehtml.URLSanitized("/cameras"),
	}
	for i, z := range zones {
		vm.Zones = append(vm.Zones, views.ZoneView{
			Index:     i,
			Name:      z.Name,
			Type:      views.Title(z.Type),
			Points:    forms.FormatPolygon(z.Points),
			Count:     len(z.Points),
			RemoveURL: safehtml.URLSanitized(fmt.Sprintf("/cameras/%d/zones/%d/delete", cam.ID, i)),
		})
	}
	return vm
}

// cameraZones loads a camera and its zones.
func (s *Server) cameraZones(w http.ResponseWriter, r *http.Request) (*api.Camera, []api.Zone, bool) {
	cam, ok := s.camera(w, r)
	if !ok {
		return nil, nil, false
	}
	zones, err := s.client.CameraZones(r.Context(), cam.ID)
	if err != nil {
		s.backendError(w, r, err)
		return nil, nil, false
	}
	return cam, zones, true
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	cam, zones, ok := s.cameraZones(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, rendering.PageZones, s.zonesPage(w, r, cam, zones, forms.ZoneForm{Type: forms.ZoneTypes[0]}, nil))
}

func (s *Server) handleZoneAdd(w http.ResponseWriter, r *http.Request) {
	cam, zones, ok := s.cameraZones(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.ParseZoneForm(r.PostForm)
	zone, errs := form.Validate()
	for _, z := range zones {
		if zone.Name != "" && strings.EqualFold(z.Name, zone.Name) {
			errs.Add("name", "A zone with this name already exists")
		}
	}
	if !errs.Any() {
		err := s.client.SetCameraZones(r.Context(), cam.ID, append(zones, zone))
		if err == nil {
			setFlash(w, flashNotice, fmt.Sprintf("Zone %s added.", zone.Name))
			http.Redirect(w, r, fmt.Sprintf("/cameras/%d/zones", cam.ID), http.StatusSeeOther)
			return
		}
		errs.Add(forms.FormLevel, api.Message(err))
	}
	s.render(w, r, http.StatusUnprocessableEntity, rendering.PageZones, s.zonesPage(w, r, cam, zones, form, errs))
}

func (s *Server) handleZoneRemove(w http.ResponseWriter, r *http.Request) {
	cam, zones, ok := s.cameraZones(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 || index >= len(zones) {
		s.errorPage(w, r, http.StatusNotFound, "Unknown zone.")
		return
	}
	back := fmt.Sprintf("/cameras/%d/zones", cam.ID)
	s.mutate(w, r, back, func(ctx context.Context) (string, error) {
		kept := append(append([]api.Zone(nil), zones[:index]...), zones[index+1:]...)
		return fmt.Sprintf("Zone %s removed.", zones[index].Name), s.client.SetCameraZones(ctx, cam.ID, kept)
	})
}

// evidenceURL resolves an image path against the vision service.
func (s *Server) evidenceURL(raw string) (safehtml.URL, bool) {
	if raw == "" {
		return safehtml.URL{}, false
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = s.client.BaseURL(api.ServiceVision) + "/" + strings.TrimLeft(raw, "/")
	}
	return safehtml.URLSanitized(raw), true
}

func (s *Server) accidentPage(w http.ResponseWriter, r *http.Request, a *api.Accident, form forms.AccidentForm, errs forms.Errors) views.AccidentDetailViewModel {
	base := fmt.Sprintf("/accidents/%d", a.ID)
	vm := views.AccidentDetailViewModel{
		Chrome:     s.chrome(w, r, fmt.Sprintf("Accident #%d", a.ID)),
		Accident:   a,
		Reported:   views.FormatTime(a.CreatedAt),
		CanReview:  identity(r).IsAdmin(),
		Form:       form,
		Errors:     errs,
		Severities: views.Options(forms.AccidentSeverities, form.Severity),
		Statuses:   views.Options(forms.AccidentStatuses, form.Status),
		UpdateURL:  safehtml.URLSanitized(base),
		ApproveURL: safehtml.URLSanitized(base + "/approve"),
		ReportURL:  safehtml.URLSanitized(base + "/report.pdf"),
		BackURL:    safehtml.URLSanitized("/accidents"),
	}
	vm.ImageURL, vm.HasImage = s.evidenceURL(a.ImageURL)
	return vm
}

func accidentForm(a *api.Accident) forms.AccidentForm {
	return forms.AccidentForm{Severity: a.Severity, Status: a.Status, Description: a.Description}
}

func (s *Server) loadAccident(w http.ResponseWriter, r *http.Request) (*api.Accident, bool) {
	accidentID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown accident.")
		return nil, false
	}
	a, err := s.client.GetAccident(r.Context(), accidentID)
	if err != nil {
		s.backendError(w, r, err)
		return nil, false
	}
	return a, true
}

func (s *Server) handleAccident(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAccident(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, rendering.PageAccident, s.accidentPage(w, r, a, accidentForm(a), nil))
}

func (s *Server) handleAccidentUpdate(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAccident(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.ParseAccidentForm(r.PostForm)
	errs := form.Validate()
	if !errs.Any() {
		_, err := s.client.UpdateAccident(r.Context(), a.ID, form.Update())
		if err == nil {
			setFlash(w, flashNotice, "Accident updated.")
			http.Redirect(w, r, fmt.Sprintf("/accidents/%d", a.ID), http.StatusSeeOther)
			return
		}
		if api.KindOf(err) == api.KindUnauthorized {
			s.backendError(w, r, err)
			return
		}
		errs.Add(forms.FormLevel, api.Message(err))
	}
	s.render(w, r, http.StatusUnprocessableEntity, rendering.PageAccident, s.accidentPage(w, r, a, form, errs))
}

func (s *Server) handleAccidentReport(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAccident(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.exporter.Accident(&buf, a); err != nil {
		s.log(r).WithError(err).Errorf("accident report %d", a.ID)
		s.errorPage(w, r, http.StatusInternalServerError, "The report could not be generated.")
		return
	}
	s.writePDF(w, r, fmt.Sprintf("accident-%d.pdf", a.ID), &buf)
}

func (s *Server) handleViolation(w http.ResponseWriter, r *http.Request) {
	violationID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown violation.")
		return
	}
	v, err := s.client.GetViolation(r.Context(), violationID)
	if err != nil {
		s.backendError(w, r, err)
		return
	}

	vm := views.ViolationDetailViewModel{
		Chrome:    s.chrome(w, r, fmt.Sprintf("Violation #%d", v.ID)),
		Violation: v,
		Reported:  views.FormatTime(v.CreatedAt),
		Fine:      views.FormatAmount(v.Fine),
		BackURL:   safehtml.URLSanitized("/violations"),
	}
	vm.ImageURL, vm.HasImage = s.evidenceURL(v.ImageURL)
	labels := map[string]string{api.ViolationPaid: "Mark paid", api.ViolationContested: "Contest", api.ViolationPending: "Reopen"}
	for _, status := range pages.ViolationStatuses {
		if pages.CanSetViolationStatus(identity(r), v.Status, status) {
			vm.Actions = append(vm.Actions, views.StatusAction{
				Label: labels[status],
				URL:   safehtml.URLSanitized(fmt.Sprintf("/violations/%d/status/%s", v.ID, status)),
			})
		}
	}
	s.render(w, r, http.StatusOK, rendering.PageViolation, vm)
}
