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

package pages

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/safehtml"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/forms"
	"github.com/trafficeye/console/core/query"
	"github.com/trafficeye/console/core/tables"
	"github.com/trafficeye/console/core/users"
	"github.com/trafficeye/console/core/views"
)

// Badge tones by lower-cased value.
var (
	roleTones = map[string]string{"admin": "danger", "user": "info"}

	statusTones = map[string]string{
		"active":    "success",
		"inactive":  "muted",
		"pending":   "warning",
		"confirmed": "info",
		"resolved":  "success",
		"rejected":  "muted",
		"paid":      "success",
		"contested": "danger",
	}

	severityTones = map[string]string{
		"low":      "info",
		"medium":   "warning",
		"high":     "danger",
		"critical": "danger",
	}

	boolTones = map[string]string{"yes": "success", "no": "muted"}
)

const timeLayout = "2006-01-02 15:04"

func link(format string, args ...any) safehtml.URL {
	return safehtml.URLSanitized(fmt.Sprintf(format, args...))
}

// confirmLink points a destructive action at its confirm page, carrying the
// list URL to return to.
func confirmLink(path string, q *query.Query) safehtml.URL {
	return safehtml.URLSanitized(path + "?next=" + url.QueryEscape(q.ToURL()))
}

func formatTime(v any) string {
	s, _ := v.(string)
	return views.FormatTime(s)
}

func formatAmount(v any) string {
	f, _ := v.(float64)
	return views.FormatAmount(f)
}

// Users is the admin user list.
func Users(client *api.Client) *List[api.User] {
	return &List[api.User]{
		Info:   Meta{Name: "users", Title: "Users", Path: "/users", AdminOnly: true},
		RowKey: "id",
		Columns: []tables.Column{
			{Key: "id", Title: "ID", Width: "60"},
			{Key: "username", Title: "Username"},
			{Key: "email", Title: "Email"},
			{Key: "role", Title: "Role", Render: views.BadgeRenderer(roleTones)},
			{Key: "status", Title: "Status", Render: views.BadgeRenderer(statusTones)},
		},
		Filters: []tables.Filter{
			{Key: "search", Label: "Search", Type: tables.FilterText, Placeholder: "Username or email", Fields: []string{"username", "email"}},
			{Key: "role", Label: "Role", Type: tables.FilterSelect, Options: fixedOptions(users.RoleAdmin, users.RoleUser)},
			{Key: "status", Label: "Status", Type: tables.FilterSelect, Options: fixedOptions(api.StatusActive, api.StatusInactive)},
		},
		Export: []ExportColumn{
			{Title: "ID", Key: "id"},
			{Title: "Username", Key: "username"},
			{Title: "Email", Key: "email"},
			{Title: "Role", Key: "role"},
			{Title: "Status", Key: "status"},
		},
		Actions: func(_ *users.Identity, q *query.Query) []tables.Action {
			isAdmin := func(r any) bool { return users.HasRole(&users.Identity{Role: r.(api.User).Role}, users.RoleAdmin) }
			isActive := func(r any) bool { return r.(api.User).Status != api.StatusInactive }
			userID := func(r any) int64 { return r.(api.User).ID }
			return []tables.Action{
				{Key: "promote", Label: "Make admin", Method: tables.MethodPost,
					Href:    func(r any, _ int) safehtml.URL { return link("/users/%d/role", userID(r)) },
					Visible: func(r any) bool { return !isAdmin(r) }},
				{Key: "demote", Label: "Revoke admin", Method: tables.MethodPost,
					Href:    func(r any, _ int) safehtml.URL { return link("/users/%d/role", userID(r)) },
					Visible: isAdmin},
				{Key: "deactivate", Label: "Deactivate", Method: tables.MethodPost,
					Href:    func(r any, _ int) safehtml.URL { return link("/users/%d/status", userID(r)) },
					Visible: isActive},
				{Key: "activate", Label: "Activate", Method: tables.MethodPost,
					Href:    func(r any, _ int) safehtml.URL { return link("/users/%d/status", userID(r)) },
					Visible: func(r any) bool { return !isActive(r) }},
				{Key: "delete", Label: "Delete", Icon: "✕", Confirm: true,
					Href: func(r any, _ int) safehtml.URL { return confirmLink(fmt.Sprintf("/users/%d/delete", userID(r)), q) }},
			}
		},
		Fetch: func(ctx context.Context, _ *users.Identity) ([]api.User, error) {
			return client.ListUsers(ctx)
		},
	}
}

// FlipRole returns the role a toggle switches to.
func FlipRole(role string) string {
	if users.HasRole(&users.Identity{Role: role}, users.RoleAdmin) {
		return users.RoleUser
	}
	return users.RoleAdmin
}

// FlipStatus returns the status a toggle switches to.
func FlipStatus(status string) string {
	if status == api.StatusInactive {
		return api.StatusActive
	}
	return api.StatusInactive
}

// Vehicles lists every vehicle for admins and the user's own otherwise.
func Vehicles(client *api.Client) *List[api.Vehicle] {
	return &List[api.Vehicle]{
		Info:   Meta{Name: "vehicles", Title: "Vehicles", Path: "/vehicles", NewURL: "/vehicles/new", NewLabel: "Add vehicle"},
		RowKey: "id",
		Columns: []tables.Column{
			{Key: "plate", Title: "Plate", Width: "120"},
			{Key: "brand", Title: "Brand"},
			{Key: "model", Title: "Model"},
			{Key: "color", Title: "Color"},
			{Key: "year", Title: "Year", Width: "70", Render: func(v any, _ any, _ int) safehtml.HTML {
				if n, _ := v.(int); n > 0 {
					return safehtml.HTMLEscaped(fmt.Sprint(n))
				}
				return safehtml.HTML{}
			}},
			{Key: "type.name", Title: "Type", Render: func(v any, _ any, _ int) safehtml.HTML {
				return safehtml.HTMLEscaped(views.Title(tables.CellText(v)))
			}},
			{Key: "owner.username", Title: "Owner"},
		},
		Filters: []tables.Filter{
			{Key: "search", Label: "Search", Type: tables.FilterText, Placeholder: "Plate, brand or model", Fields: []string{"plate", "brand", "model"}},
			{Key: "type", Label: "Type", Type: tables.FilterSelect, Fields: []string{"type.name"}},
		},
		OptionsFrom: map[string]string{"type": "type.name"},
		Export: []ExportColumn{
			{Title: "Plate", Key: "plate"},
			{Title: "Brand", Key: "brand"},
			{Title: "Model", Key: "model"},
			{Title: "Color", Key: "color"},
			{Title: "Type", Key: "type.name"},
			{Title: "Owner", Key: "owner.username"},
		},
		Actions: func(_ *users.Identity, q *query.Query) []tables.Action {
			vehicleID := func(r any) int64 { return r.(api.Vehicle).ID }
			return []tables.Action{
				{Key: "edit", Label: "Edit", Icon: "✎",
					Href: func(r any, _ int) safehtml.URL { return link("/vehicles/%d/edit", vehicleID(r)) }},
				{Key: "delete", Label: "Delete", Icon: "✕", Confirm: true,
					Href: func(r any, _ int) safehtml.URL {
						return confirmLink(fmt.Sprintf("/vehicles/%d/delete", vehicleID(r)), q)
					}},
			}
		},
		Fetch: func(ctx context.Context, id *users.Identity) ([]api.Vehicle, error) {
			if id.IsAdmin() {
				return client.ListVehicles(ctx)
			}
			return client.ListUserVehicles(ctx, id.UserID)
		},
	}
}

// Accidents lists accidents. Rows open the detail page.
func Accidents(client *api.Client) *List[api.Accident] {
	return &List[api.Accident]{
		Info:   Meta{Name: "accidents", Title: "Accidents", Path: "/accidents"},
		RowKey: "id",
		Columns: []tables.Column{
			{Key: "id", Title: "ID", Width: "60"},
			{Key: "location", Title: "Location"},
			{Key: "severity", Title: "Severity", Render: views.BadgeRenderer(severityTones)},
			{Key: "status", Title: "Status", Render: views.BadgeRenderer(statusTones)},
			{Key: "approved", Title: "Approved", Render: views.BadgeRenderer(boolTones)},
			{Key: "createdAt", Title: "Reported", Render: views.TimeRenderer(timeLayout)},
			{Key: "vehicle.plate", Title: "Vehicle"},
		},
		Filters: []tables.Filter{
			{Key: "search", Label: "Search", Type: tables.FilterText, Placeholder: "Location or plate", Fields: []string{"location", "vehicle.plate", "description"}},
			{Key: "severity", Label: "Severity", Type: tables.FilterSelect, Options: fixedOptions(forms.AccidentSeverities...)},
			{Key: "status", Label: "Status", Type: tables.FilterSelect, Options: fixedOptions(forms.AccidentStatuses...)},
		},
		Export: []ExportColumn{
			{Title: "ID", Key: "id"},
			{Title: "Location", Key: "location"},
			{Title: "Severity", Key: "severity"},
			{Title: "Status", Key: "status"},
			{Title: "Reported", Key: "createdAt", Format: formatTime},
			{Title: "Vehicle", Key: "vehicle.plate"},
		},
		Actions: func(id *users.Identity, _ *query.Query) []tables.Action {
			accidentID := func(r any) int64 { return r.(api.Accident).ID }
			actions := []tables.Action{
				{Key: "view", Label: "View",
					Href: func(r any, _ int) safehtml.URL { return link("/accidents/%d", accidentID(r)) }},
				{Key: "report", Label: "PDF",
					Href: func(r any, _ int) safehtml.URL { return link("/accidents/%d/report.pdf", accidentID(r)) }},
			}
			if id.IsAdmin() {
				actions = append(actions, tables.Action{Key: "approve", Label: "Approve", Method: tables.MethodPost,
					Href:    func(r any, _ int) safehtml.URL { return link("/accidents/%d/approve", accidentID(r)) },
					Visible: func(r any) bool { return !r.(api.Accident).Approved }})
			}
			return actions
		},
		RowHref: func(r any, _ int) safehtml.URL { return link("/accidents/%d", r.(api.Accident).ID) },
		Fetch: func(ctx context.Context, id *users.Identity) ([]api.Accident, error) {
			if id.IsAdmin() {
				return client.ListAccidents(ctx)
			}
			return client.ListUserAccidents(ctx, id.UserID)
		},
	}
}

// ViolationStatuses are the statuses a violation moves between.
var ViolationStatuses = []string{api.ViolationPending, api.ViolationPaid, api.ViolationContested}

// CanSetViolationStatus reports whether id may move a violation in status
// from to status to. Admins settle fines; owners may contest pending ones.
func CanSetViolationStatus(id *users.Identity, from, to string) bool {
	if from == to {
		return false
	}
	if id.IsAdmin() {
		return true
	}
	return from == api.ViolationPending && to == api.ViolationContested
}

// Violations lists violations with their fines.
func Violations(client *api.Client) *List[api.Violation] {
	return &List[api.Violation]{
		Info:   Meta{Name: "violations", Title: "Violations", Path: "/violations"},
		RowKey: "id",
		Columns: []tables.Column{
			{Key: "id", Title: "ID", Width: "60"},
			{Key: "type", Title: "Type", Render: func(v any, _ any, _ int) safehtml.HTML {
				return safehtml.HTMLEscaped(views.Title(tables.CellText(v)))
			}},
			{Key: "plate", Title: "Plate"},
			{Key: "fine", Title: "Fine", Render: views.AmountRenderer("")},
			{Key: "status", Title: "Status", Render: views.BadgeRenderer(statusTones)},
			{Key: "createdAt", Title: "Date", Render: views.TimeRenderer(timeLayout)},
		},
		Filters: []tables.Filter{
			{Key: "search", Label: "Search", Type: tables.FilterText, Placeholder: "Plate or location", Fields: []string{"plate", "location"}},
			{Key: "type", Label: "Type", Type: tables.FilterSelect},
			{Key: "status", Label: "Status", Type: tables.FilterSelect, Options: fixedOptions(ViolationStatuses...)},
		},
		OptionsFrom: map[string]string{"type": "type"},
		Export: []ExportColumn{
			{Title: "ID", Key: "id"},
			{Title: "Type", Key: "type"},
			{Title: "Plate", Key: "plate"},
			{Title: "Fine", Key: "fine", Format: formatAmount},
			{Title: "Status", Key: "status"},
			{Title: "Date", Key: "createdAt", Format: formatTime},
		},
		Actions: func(id *users.Identity, _ *query.Query) []tables.Action {
			violationID := func(r any) int64 { return r.(api.Violation).ID }
			setStatus := func(key, label, status string) tables.Action {
				return tables.Action{Key: key, Label: label, Method: tables.MethodPost,
					Href:    func(r any, _ int) safehtml.URL { return link("/violations/%d/status/%s", violationID(r), status) },
					Visible: func(r any) bool { return CanSetViolationStatus(id, r.(api.Violation).Status, status) }}
			}
			return []tables.Action{
				{Key: "view", Label: "View",
					Href: func(r any, _ int) safehtml.URL { return link("/violations/%d", violationID(r)) }},
				setStatus("paid", "Mark paid", api.ViolationPaid),
				setStatus("contest", "Contest", api.ViolationContested),
			}
		},
		RowHref: func(r any, _ int) safehtml.URL { return link("/violations/%d", r.(api.Violation).ID) },
		Fetch: func(ctx context.Context, id *users.Identity) ([]api.Violation, error) {
			if id.IsAdmin() {
				return client.ListViolations(ctx)
			}
			return client.ListUserViolations(ctx, id.UserID)
		},
	}
}

// Cameras is the admin camera list.
func Cameras(client *api.Client) *List[api.Camera] {
	return &List[api.Camera]{
		Info:   Meta{Name: "cameras", Title: "Cameras", Path: "/cameras", AdminOnly: true, NewURL: "/cameras/new", NewLabel: "Add camera"},
		RowKey: "id",
		Columns: []tables.Column{
			{Key: "id", Title: "ID", Width: "60"},
			{Key: "name", Title: "Name"},
			{Key: "streamUrl", Title: "Stream"},
			{Key: "active", Title: "Active", Render: views.BadgeRenderer(boolTones)},
			{Key: "zones", Title: "Zones", Width: "70", Render: func(_ any, r any, _ int) safehtml.HTML {
				return safehtml.HTMLEscaped(fmt.Sprint(len(r.(api.Camera).Zones)))
			}},
		},
		Filters: []tables.Filter{
			{Key: "search", Label: "Search", Type: tables.FilterText, Placeholder: "Name or stream", Fields: []string{"name", "streamUrl"}},
			{Key: "active", Label: "Active", Type: tables.FilterSelect, Options: []tables.Option{{Value: "Yes", Label: "Active"}, {Value: "No", Label: "Inactive"}}},
		},
		Export: []ExportColumn{
			{Title: "ID", Key: "id"},
			{Title: "Name", Key: "name"},
			{Title: "Stream", Key: "streamUrl"},
			{Title: "Active", Key: "active"},
		},
		Actions: func(_ *users.Identity, q *query.Query) []tables.Action {
			cameraID := func(r any) int64 { return r.(api.Camera).ID }
			return []tables.Action{
				{Key: "edit", Label: "Edit", Icon: "✎",
					Href: func(r any, _ int) safehtml.URL { return link("/cameras/%d/edit", cameraID(r)) }},
				{Key: "zones", Label: "Zones",
					Href: func(r any, _ int) safehtml.URL { return link("/cameras/%d/zones", cameraID(r)) }},
				{Key: "delete", Label: "Delete", Icon: "✕", Confirm: true,
					Href: func(r any, _ int) safehtml.URL { return confirmLink(fmt.Sprintf("/cameras/%d/delete", cameraID(r)), q) }},
			}
		},
		Fetch: func(ctx context.Context, _ *users.Identity) ([]api.Camera, error) {
			return client.ListCameras(ctx)
		},
	}
}
