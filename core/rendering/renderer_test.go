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

package rendering

import (
	"bytes"
	"io/fs"
	"net/url"
	"strings"
	"testing"

	"github.com/google/safehtml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/charts"
	"github.com/trafficeye/console/core/forms"
	"github.com/trafficeye/console/core/query"
	"github.com/trafficeye/console/core/tables"
	"github.com/trafficeye/console/core/users"
	"github.com/trafficeye/console/core/views"
)

var admin = &users.Identity{UserID: "1", Username: "root", Email: "root@example.com", Role: users.RoleAdmin}

func render(t *testing.T, r *Renderer, page Page, vm any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, page, vm), "rendering %s", page)
	return buf.String()
}

func TestRenderList(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	u, err := url.Parse("/vehicles?filters=open&filter:plate=ab")
	require.NoError(t, err)
	q := query.NewQuery(u)

	records := tables.Records([]api.Vehicle{
		{ID: 1, Plate: "AB-123-CD", Brand: "Renault"},
		{ID: 2, Plate: "AB-<b>-CD", Brand: "Fiat"},
	})
	table := views.BuildTableViewModel(views.TableProps{
		Data:         records,
		FilteredData: records,
		Columns:      []tables.Column{{Key: "plate", Title: "Plate"}, {Key: "brand", Title: "Brand"}},
		RowKey:       "id",
		Filters:      []tables.Filter{{Key: "plate", Label: "Plate", Type: tables.FilterText}},
		FilterValues: q.Filters,
		Actions: []tables.Action{
			{Key: "delete", Label: "Delete", Method: tables.MethodPost, Href: func(record any, _ int) safehtml.URL {
				return safehtml.URLSanitized("/vehicles/" + tables.LookupText(record, "id") + "/delete")
			}},
		},
		Query: q,
	})

	out := render(t, r, PageList, views.ListPageViewModel{
		Chrome:    views.NewChrome("TrafficEye", "Vehicles", "/vehicles", admin),
		Table:     table,
		HasNew:    true,
		NewURL:    safehtml.URLSanitized("/vehicles/new"),
		NewLabel:  "Add vehicle",
		ExportURL: safehtml.URLSanitized("/vehicles/export.pdf"),
	})

	assert.Contains(t, out, "<title>Vehicles · TrafficEye</title>")
	assert.Contains(t, out, "AB-123-CD")
	assert.Contains(t, out, "AB-&lt;b&gt;-CD")
	assert.NotContains(t, out, "AB-<b>-CD")
	assert.Contains(t, out, `action="/vehicles/1/delete"`)
	assert.Contains(t, out, `name="fk" value="plate"`)
	assert.Contains(t, out, `href="/vehicles/new"`)
	assert.Contains(t, out, "Showing 1 to 2 of 2 entries")
	assert.Contains(t, out, `class="active"`)
}

func TestRenderEveryPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	chrome := views.NewChrome("TrafficEye", "Page", "/", admin)
	accident := &api.Accident{ID: 3, Location: "Main St", Severity: "HIGH", Status: "PENDING"}

	stats := views.BuildStatsPanel("Accidents", "By severity",
		[]string{"2024-03-04T10:00:00Z", "2024-03-05T10:00:00Z"},
		[]string{"HIGH", "LOW"}, charts.DateRange{})

	tests := []struct {
		page Page
		vm   any
		want string
	}{
		{PageLanding, views.BuildLanding(chrome), "Cameras"},
		{PageLogin, views.AuthViewModel{Chrome: views.Chrome{AppTitle: "TrafficEye", Title: "Sign in"}, Errors: forms.Errors{"email": "Email is required"}}, "Email is required"},
		{PageRegister, views.AuthViewModel{Chrome: chrome, Username: "bob"}, `value="bob"`},
		{PageForgot, views.AuthViewModel{Chrome: chrome, Done: true}, "</main>"},
		{PageVehicleForm, views.VehicleFormViewModel{Chrome: chrome, Types: views.TypeOptions([]api.VehicleType{{ID: 2, Name: "truck"}}, "2"), MaxYear: 2027}, `<option value="2" selected>Truck</option>`},
		{PageCameraForm, views.CameraFormViewModel{Chrome: chrome, Form: forms.CameraForm{Name: "North gate", Active: true}}, "North gate"},
		{PageZones, views.ZonesViewModel{Chrome: chrome, Types: views.Options(forms.ZoneTypes, "speed"), Zones: []views.ZoneView{{Name: "lane 1", Type: "speed", Points: "0,0;1,0;1,1", Count: 3}}}, "lane 1"},
		{PageAccident, views.AccidentDetailViewModel{Chrome: chrome, Accident: accident, CanReview: true, Severities: views.Options(forms.AccidentSeverities, "HIGH")}, "Approve"},
		{PageViolation, views.ViolationDetailViewModel{Chrome: chrome, Violation: &api.Violation{ID: 1, Plate: "AB-001-CD"}, Fine: "90.00", Actions: []views.StatusAction{{Label: "Mark paid", URL: safehtml.URLSanitized("/violations/1/status/PAID")}}}, `action="/violations/1/status/PAID"`},
		{PageConfirm, views.ConfirmViewModel{Chrome: chrome, Message: "Delete vehicle AB-001-CD?"}, "Delete vehicle AB-001-CD?"},
		{PageNotifications, views.NotificationsViewModel{Chrome: chrome, Items: views.BuildNotifications([]api.Notification{{ID: 4, Title: "New accident"}})}, `action="/notifications/4/read"`},
		{PageChat, views.ChatViewModel{Chrome: chrome, Messages: []views.ChatMessageView{{Mine: true, Content: "hi"}, {Content: "Hello!"}}}, `class="bubble mine"`},
		{PageStats, views.StatsViewModel{Chrome: chrome, Accidents: stats, Violations: views.StatsPanel{Title: "Violations", Error: "core service unavailable"}}, "core service unavailable"},
		{PageError, views.ErrorViewModel{Chrome: chrome, Status: 404, Message: "Not found"}, "Not found"},
	}
	for _, tt := range tests {
		t.Run(string(tt.page), func(t *testing.T) {
			out := render(t, r, tt.page, tt.vm)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestRenderStatsStyles(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	panel := views.BuildStatsPanel("Violations", "By type",
		[]string{"2024-03-04T10:00:00Z"}, []string{"speeding"}, charts.DateRange{})
	out := render(t, r, PageStats, views.StatsViewModel{
		Chrome:     views.NewChrome("TrafficEye", "Statistics", "/stats", admin),
		Accidents:  panel,
		Violations: panel,
	})
	assert.Contains(t, out, "height:100%;")
	assert.Contains(t, out, "width:100.0%;")
}

func TestUnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	assert.Error(t, r.Render(&bytes.Buffer{}, Page("nope"), nil))
}

func TestStatic(t *testing.T) {
	for _, name := range []string{"console.css", "console.js"} {
		b, err := fs.ReadFile(Static(), name)
		require.NoError(t, err)
		assert.True(t, len(strings.TrimSpace(string(b))) > 0, name)
	}
}
