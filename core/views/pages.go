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

package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/safehtml"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/charts"
	"github.com/trafficeye/console/core/forms"
	"github.com/trafficeye/console/core/users"
)

// Title formats a resource or status name for display, "red_light" becomes
// "Red Light". A Caser is stateful, so each call builds its own.
func Title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(s), "_", " "))
}

// Chrome is the layout data every page carries.
type Chrome struct {
	AppTitle  string
	Title     string
	User      *users.Identity
	IsAdmin   bool
	Nav       []NavLink
	Unread    int
	Notice    string // success message
	Alert     string // page-level error
	RequestID string
}

// NavLink is one header navigation entry.
type NavLink struct {
	Label  string
	URL    safehtml.URL
	Active bool
}

// Section describes a console area shown in the navigation and on the
// landing page.
type Section struct {
	Name        string
	Description string
	Path        string
	Roles       []string // empty means every signed-in user
}

// Sections lists the console areas in navigation order.
var Sections = []Section{
	{Name: "Vehicles", Path: "/vehicles", Description: "Registered vehicles, their type and owner."},
	{Name: "Accidents", Path: "/accidents", Description: "Accidents detected by the cameras, with review and approval."},
	{Name: "Violations", Path: "/violations", Description: "Traffic violations and the status of their fines."},
	{Name: "Statistics", Path: "/stats", Description: "Monthly and weekly trends of accidents and violations."},
	{Name: "Users", Path: "/users", Description: "Accounts, roles and activation.", Roles: []string{users.RoleAdmin}},
	{Name: "Cameras", Path: "/cameras", Description: "Camera streams and their detection zones.", Roles: []string{users.RoleAdmin}},
}

// VisibleSections returns the sections id may open.
func VisibleSections(id *users.Identity) []Section {
	var out []Section
	for _, s := range Sections {
		if len(s.Roles) == 0 || users.HasAnyRole(id, s.Roles) {
			out = append(out, s)
		}
	}
	return out
}

// NewChrome builds the layout data for a page at path.
func NewChrome(appTitle, title, path string, id *users.Identity) Chrome {
	c := Chrome{
		AppTitle: appTitle,
		Title:    title,
		User:     id,
		IsAdmin:  id.IsAdmin(),
	}
	if id == nil {
		return c
	}
	for _, s := range VisibleSections(id) {
		c.Nav = append(c.Nav, NavLink{
			Label:  s.Name,
			URL:    safehtml.URLSanitized(s.Path),
			Active: path == s.Path || strings.HasPrefix(path, s.Path+"/"),
		})
	}
	return c
}

// LandingViewModel is the dashboard home page.
type LandingViewModel struct {
	Chrome
	Cards []Card
}

// Card links to one section.
type Card struct {
	Name        string
	Description string
	URL         safehtml.URL
}

// BuildLanding lists the sections id may open.
func BuildLanding(c Chrome) LandingViewModel {
	vm := LandingViewModel{Chrome: c}
	for _, s := range VisibleSections(c.User) {
		vm.Cards = append(vm.Cards, Card{Name: s.Name, Description: s.Description, URL: safehtml.URLSanitized(s.Path)})
	}
	return vm
}

// ListPageViewModel is a host page around one table.
type ListPageViewModel struct {
	Chrome
	Table     TableViewModel
	HasNew    bool
	NewURL    safehtml.URL
	NewLabel  string
	ExportURL safehtml.URL
}

// AuthViewModel serves the login, registration and forgot-password pages.
type AuthViewModel struct {
	Chrome
	Username string
	Email    string
	Next     string
	Errors   forms.Errors
	Done     bool // the request went through; show the confirmation
}

// VehicleFormViewModel is the create/edit vehicle page.
type VehicleFormViewModel struct {
	Chrome
	Editing    bool
	Action     safehtml.URL
	CancelURL  safehtml.URL
	Form       forms.VehicleForm
	Types      []OptionView
	TypesError string
	Errors     forms.Errors
	MaxYear    int
}

// TypeOptions turns vehicle types into select options.
func TypeOptions(types []api.VehicleType, selected string) []OptionView {
	opts := make([]OptionView, 0, len(types))
	for _, t := range types {
		v := fmt.Sprint(t.ID)
		opts = append(opts, OptionView{Value: v, Label: Title(t.Name), Selected: v == selected})
	}
	return opts
}

// Options turns fixed values into select options.
func Options(values []string, selected string) []OptionView {
	opts := make([]OptionView, 0, len(values))
	for _, v := range values {
		opts = append(opts, OptionView{Value: v, Label: Title(v), Selected: v == selected})
	}
	return opts
}

// CameraFormViewModel is the create/edit camera page.
type CameraFormViewModel struct {
	Chrome
	Editing   bool
	Action    safehtml.URL
	CancelURL safehtml.URL
	Form      forms.CameraForm
	Errors    forms.Errors
}

// ZonesViewModel lists and edits the zones of one camera.
type ZonesViewModel struct {
	Chrome
	Camera  api.Camera
	Zones   []ZoneView
	Types   []OptionView
	Form    forms.ZoneForm
	Errors  forms.Errors
	Action  safehtml.URL
	BackURL safehtml.URL
}

// ZoneView is one configured zone.
type ZoneView struct {
	Index     int
	Name      string
	Type      string
	Points    string
	Count     int
	RemoveURL safehtml.URL
}

// AccidentDetailViewModel shows one accident with its review form.
type AccidentDetailViewModel struct {
	Chrome
	Accident   *api.Accident
	Reported   string
	HasImage   bool
	ImageURL   safehtml.URL
	CanReview  bool
	Form       forms.AccidentForm
	Errors     forms.Errors
	Severities []OptionView
	Statuses   []OptionView
	UpdateURL  safehtml.URL
	ApproveURL safehtml.URL
	ReportURL  safehtml.URL
	BackURL    safehtml.URL
}

// ViolationDetailViewModel shows one violation.
type ViolationDetailViewModel struct {
	Chrome
	Violation *api.Violation
	Reported  string
	Fine      string
	HasImage  bool
	ImageURL  safehtml.URL
	Actions   []StatusAction
	BackURL   safehtml.URL
}

// StatusAction posts a violation status change.
type StatusAction struct {
	Label string
	URL   safehtml.URL
}

// ConfirmViewModel asks before a destructive action.
type ConfirmViewModel struct {
	Chrome
	Message   string
	Action    safehtml.URL
	Next      string
	CancelURL safehtml.URL
}

// NotificationsViewModel is the notification list.
type NotificationsViewModel struct {
	Chrome
	Items []NotificationView
	Error string
}

// NotificationView is one notification.
type NotificationView struct {
	ID      int64
	Title   string
	Message string
	When    string
	Read    bool
	ReadURL safehtml.URL
}

// BuildNotifications converts notifications, newest first as delivered.
func BuildNotifications(items []api.Notification) []NotificationView {
	out := make([]NotificationView, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationView{
			ID:      n.ID,
			Title:   n.Title,
			Message: n.Message,
			When:    FormatTime(n.CreatedAt),
			Read:    n.Read,
			ReadURL: safehtml.URLSanitized(fmt.Sprintf("/notifications/%d/read", n.ID)),
		})
	}
	return out
}

// UnreadCount counts unread notifications.
func UnreadCount(items []api.Notification) int {
	n := 0
	for _, item := range items {
		if !item.Read {
			n++
		}
	}
	return n
}

// ChatViewModel is the chatbot page.
type ChatViewModel struct {
	Chrome
	Messages []ChatMessageView
	Draft    string
	Error    string
}

// ChatMessageView is one transcript line.
type ChatMessageView struct {
	Mine    bool
	Content string
	When    string
}

// StatsViewModel is the statistics dashboard.
type StatsViewModel struct {
	Chrome
	From       string
	To         string
	Accidents  StatsPanel
	Violations StatsPanel
}

// StatsPanel holds the charts of one dataset.
type StatsPanel struct {
	Title      string
	Error      string
	Total      int
	Years      []YearChart
	Weekly     []BarView
	DonutTitle string
	Donut      []SliceView
}

// YearChart is the monthly bar chart of one year.
type YearChart struct {
	Year  int
	Total int
	Bars  []BarView
}

// BarView is one rendered bar.
type BarView struct {
	Label string
	Count int
	Style safehtml.Style
}

// SliceView is one rendered donut segment, drawn as a proportional strip.
type SliceView struct {
	Label   string
	Count   int
	Percent string
	Style   safehtml.Style
}

// BuildStatsPanel buckets the timestamps inside r into monthly and weekly
// charts and groups labels into the breakdown. stamps and labels are
// parallel.
func BuildStatsPanel(title, donutTitle string, stamps, labels []string, r charts.DateRange) StatsPanel {
	p := StatsPanel{Title: title, DonutTitle: donutTitle}

	var inRange []string
	for i, s := range stamps {
		t, err := charts.ParseTimestamp(s)
		if err != nil || !r.Contains(t) {
			continue
		}
		p.Total++
		if i < len(labels) {
			inRange = append(inRange, labels[i])
		}
	}

	for _, ys := range charts.MonthlySeries(charts.MonthlyCounts(stamps, r)) {
		p.Years = append(p.Years, YearChart{Year: ys.Year, Total: ys.Total, Bars: barViews(ys.Bars)})
	}
	weekly := charts.WeeklyCounts(stamps, r, time.Monday)
	p.Weekly = barViews(charts.Bars(charts.WeekdayLabels(time.Monday), weekly[:]))

	for _, s := range charts.DonutCounts(inRange) {
		p.Donut = append(p.Donut, SliceView{
			Label:   Title(s.Label),
			Count:   s.Count,
			Percent: fmt.Sprintf("%.1f%%", s.Percent),
			Style:   safehtml.StyleFromProperties(safehtml.StyleProperties{Width: fmt.Sprintf("%.1f%%", s.Percent)}),
		})
	}
	return p
}

func barViews(bars []charts.Bar) []BarView {
	out := make([]BarView, 0, len(bars))
	for _, b := range bars {
		out = append(out, BarView{
			Label: b.Label,
			Count: b.Count,
			Style: safehtml.StyleFromProperties(safehtml.StyleProperties{Height: fmt.Sprintf("%d%%", b.Height)}),
		})
	}
	return out
}

// ErrorViewModel is a full-page error.
type ErrorViewModel struct {
	Chrome
	Status  int
	Message string
}

// FormatTime renders a backend timestamp for display, keeping it as is
// when it cannot be parsed.
func FormatTime(raw string) string {
	t, err := charts.ParseTimestamp(raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02 15:04")
}

// FormatAmount renders a fine.
func FormatAmount(v float64) string {
	return printer.Sprintf("%.2f", v)
}
