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
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/safehtml"

	"github.com/trafficeye/console/core/query"
	"github.com/trafficeye/console/core/tables"
)

type testUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Profile  *struct {
		City string `json:"city"`
	} `json:"profile"`
}

func makeUsers(n int) []testUser {
	out := make([]testUser, n)
	for i := range out {
		role := "USER"
		if i%5 == 0 {
			role = "ADMIN"
		}
		out[i] = testUser{ID: i + 1, Username: fmt.Sprintf("user%02d", i+1), Role: role}
	}
	return out
}

func mustQuery(t *testing.T, raw string) *query.Query {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return query.NewQuery(u)
}

var userColumns = []tables.Column{
	{Key: "id", Title: "ID"},
	{Key: "username", Title: "Username"},
	{Key: "profile.city", Title: "City"},
}

var userFilters = []tables.Filter{
	{Key: "search", Label: "Search", Type: tables.FilterText, Fields: []string{"username"}},
	{Key: "role", Label: "Role", Type: tables.FilterSelect, Options: []tables.Option{
		{Value: "ADMIN", Label: "Admin"},
		{Value: "USER", Label: "User"},
	}},
}

func TestNoFiltersNoPagination(t *testing.T) {
	data := tables.Records(makeUsers(3))
	vm := BuildTableViewModel(TableProps{
		Data:         data,
		FilteredData: data,
		Columns:      userColumns,
		RowKey:       "id",
		Filters:      userFilters,
		Query:        mustQuery(t, "/users"),
	})

	if len(vm.Chips) != 0 || vm.HasActiveFilters {
		t.Errorf("expected no chips, got %+v", vm.Chips)
	}
	if want := "Showing 1 to 3 of 3 entries"; vm.Info.Text != want {
		t.Errorf("info = %q, want %q", vm.Info.Text, want)
	}
	if vm.Pager != nil {
		t.Error("pager should be hidden without pagination")
	}
	if len(vm.PageSizes) != 0 {
		t.Error("page size selector should be hidden")
	}
	if len(vm.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(vm.Rows))
	}
	if vm.Rows[1].Key != "2" {
		t.Errorf("row key = %q, want 2", vm.Rows[1].Key)
	}
	// Missing nested value renders empty
	if got := vm.Rows[0].Cells[2].String(); got != "" {
		t.Errorf("missing nested cell = %q, want empty", got)
	}
	if vm.FilterBar == nil || vm.FilterBar.Expanded {
		t.Error("filter bar should exist and start collapsed")
	}
}

func TestFilteredInfoAndChips(t *testing.T) {
	users := makeUsers(5)
	q := mustQuery(t, "/users?filter:role=ADMIN&filter:search=user")
	filtered := tables.ApplyFilters(users, userFilters, q.Filters)

	vm := BuildTableViewModel(TableProps{
		Data:         tables.Records(users),
		FilteredData: tables.Records(filtered),
		Columns:      userColumns,
		Filters:      userFilters,
		Query:        q,
	})

	if want := "Showing 1 to 1 of 1 entries (filtered from 5 total)"; vm.Info.Text != want {
		t.Errorf("info = %q, want %q", vm.Info.Text, want)
	}
	if !vm.FilterBar.Expanded {
		t.Error("filter bar should be expanded while filters are active")
	}

	var got []string
	for _, c := range vm.Chips {
		got = append(got, c.Label+"="+c.Value+" -> "+c.ClearURL.String())
	}
	want := []string{
		"Search=user -> /users?filter%3Arole=ADMIN",
		"Role=Admin -> /users?filter%3Asearch=user",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("chips mismatch (-want +got):\n%s", diff)
	}
	if vm.ResetURL.String() != "/users" {
		t.Errorf("reset url = %q", vm.ResetURL.String())
	}
}

func TestFilterPanelToggleWithActiveFilter(t *testing.T) {
	users := makeUsers(5)
	build := func(raw string) TableViewModel {
		q := mustQuery(t, raw)
		return BuildTableViewModel(TableProps{
			Data:         tables.Records(users),
			FilteredData: tables.Records(tables.ApplyFilters(users, userFilters, q.Filters)),
			Columns:      userColumns,
			Filters:      userFilters,
			Query:        q,
		})
	}

	vm := build("/users?filter:role=ADMIN")
	if !vm.FilterBar.Expanded {
		t.Fatal("active filter should expand the panel")
	}
	vm = build(vm.FilterBar.ToggleURL.String())
	if vm.FilterBar.Expanded {
		t.Errorf("first toggle should collapse the panel, url %q", vm.FilterBar.ToggleURL.String())
	}
	if len(vm.Chips) != 1 {
		t.Errorf("collapsing must keep the filter, chips %v", vm.Chips)
	}
	vm = build(vm.FilterBar.ToggleURL.String())
	if !vm.FilterBar.Expanded {
		t.Error("second toggle should expand the panel again")
	}
}

func TestFilteredDataLongerThanData(t *testing.T) {
	vm := BuildTableViewModel(TableProps{
		Data:         tables.Records(makeUsers(1)),
		FilteredData: tables.Records(makeUsers(4)),
		Columns:      userColumns,
	})
	if strings.Contains(vm.Info.Text, "filtered from") {
		t.Errorf("unexpected suffix in %q", vm.Info.Text)
	}
	if len(vm.Rows) != 4 {
		t.Errorf("expected 4 rows, got %d", len(vm.Rows))
	}
}

func TestPagination(t *testing.T) {
	users := makeUsers(25)

	build := func(raw string) TableViewModel {
		q := mustQuery(t, raw)
		page, pg := tables.Paginate(users, q.Page, q.PageSize)
		pg.PageSizeChangeable = true
		return BuildTableViewModel(TableProps{
			Data:         tables.Records(users),
			FilteredData: tables.Records(page),
			Columns:      userColumns,
			Pagination:   pg,
			Query:        q,
		})
	}

	t.Run("middle page", func(t *testing.T) {
		vm := build("/users?page=2")
		if want := "Showing 11 to 20 of 25 entries"; vm.Info.Text != want {
			t.Errorf("info = %q, want %q", vm.Info.Text, want)
		}
		if vm.Pager == nil {
			t.Fatal("pager expected")
		}
		if vm.Pager.PrevDisabled || vm.Pager.NextDisabled {
			t.Error("prev and next should both be enabled")
		}
		if vm.Pager.PrevURL.String() != "/users" || vm.Pager.NextURL.String() != "/users?page=3" {
			t.Errorf("prev/next = %q/%q", vm.Pager.PrevURL.String(), vm.Pager.NextURL.String())
		}
		var numbers []int
		for _, p := range vm.Pager.Pages {
			numbers = append(numbers, p.Number)
			if p.Current != (p.Number == 2) {
				t.Errorf("page %d current = %v", p.Number, p.Current)
			}
		}
		if diff := cmp.Diff([]int{1, 2, 3}, numbers); diff != "" {
			t.Errorf("pages mismatch (-want +got):\n%s", diff)
		}
		if len(vm.Rows) != 10 {
			t.Errorf("unexpected rows: %d", len(vm.Rows))
		}
	})

	t.Run("boundaries", func(t *testing.T) {
		first := build("/users")
		if !first.Pager.PrevDisabled || first.Pager.NextDisabled {
			t.Error("page 1: prev disabled, next enabled")
		}
		last := build("/users?page=3")
		if last.Pager.PrevDisabled || !last.Pager.NextDisabled {
			t.Error("last page: prev enabled, next disabled")
		}
		if want := "Showing 21 to 25 of 25 entries"; last.Info.Text != want {
			t.Errorf("info = %q, want %q", last.Info.Text, want)
		}
	})

	t.Run("page size change", func(t *testing.T) {
		vm := build("/users?page=3")
		var sizeURL safehtml.URL
		for _, opt := range vm.PageSizes {
			if opt.Size == 25 {
				sizeURL = opt.URL
			}
			if opt.Selected != (opt.Size == 10) {
				t.Errorf("size %d selected = %v", opt.Size, opt.Selected)
			}
		}
		if len(vm.PageSizes) != 4 {
			t.Fatalf("expected 4 page sizes, got %d", len(vm.PageSizes))
		}

		next := build(sizeURL.String())
		if next.Pager != nil {
			t.Error("one page should hide the pager")
		}
		if len(next.Rows) != 25 {
			t.Errorf("expected 25 rows, got %d", len(next.Rows))
		}
		if len(next.PageSizes) != 4 {
			t.Error("page size selector stays visible")
		}
	})
}

func TestRenderStates(t *testing.T) {
	data := tables.Records(makeUsers(2))

	t.Run("loading", func(t *testing.T) {
		vm := BuildTableViewModel(TableProps{Data: data, FilteredData: data, Loading: true})
		if !vm.Loading || len(vm.Rows) != 0 || vm.Empty || vm.Error != "" {
			t.Errorf("loading shows spinner only: %+v", vm)
		}
	})

	t.Run("error with retry", func(t *testing.T) {
		vm := BuildTableViewModel(TableProps{
			Error: "Network error",
			Retry: true,
			Query: mustQuery(t, "/vehicles?page=2"),
		})
		if vm.Error != "Network error" || !vm.HasRetry {
			t.Fatalf("expected error with retry, got %+v", vm)
		}
		if vm.RetryURL.String() != "/vehicles?page=2" {
			t.Errorf("retry url = %q", vm.RetryURL.String())
		}
		if vm.Empty {
			t.Error("error replaces the empty message")
		}
	})

	t.Run("empty", func(t *testing.T) {
		vm := BuildTableViewModel(TableProps{Data: data})
		if !vm.Empty || vm.EmptyMessage != "No records found" {
			t.Errorf("empty message = %q", vm.EmptyMessage)
		}
		if vm.Info.Text != "Showing 0 to 0 of 0 entries (filtered from 2 total)" {
			t.Errorf("info = %q", vm.Info.Text)
		}
	})

	t.Run("empty with filters", func(t *testing.T) {
		vm := BuildTableViewModel(TableProps{
			Data:    data,
			Filters: userFilters,
			Query:   mustQuery(t, "/users?filter:search=nobody"),
		})
		if vm.EmptyMessage != "No records found matching your filters" {
			t.Errorf("empty message = %q", vm.EmptyMessage)
		}
	})
}

func TestActionsAndRowLinks(t *testing.T) {
	data := tables.Records(makeUsers(2))
	vm := BuildTableViewModel(TableProps{
		Data:         data,
		FilteredData: data,
		Columns:      userColumns,
		RowKey:       "id",
		RowHref: func(record any, _ int) safehtml.URL {
			return safehtml.URLSanitized(fmt.Sprintf("/users/%d", record.(testUser).ID))
		},
		Actions: []tables.Action{
			{Key: "edit", Label: "Edit", Href: func(record any, _ int) safehtml.URL {
				return safehtml.URLSanitized(fmt.Sprintf("/users/%d/edit", record.(testUser).ID))
			}},
			{Key: "promote", Label: "Make admin", Method: tables.MethodPost,
				Visible: func(record any) bool { return record.(testUser).Role != "ADMIN" }},
			{Key: "delete", Label: "Delete", Confirm: true},
		},
	})

	if !vm.HasActions {
		t.Fatal("expected actions column")
	}
	var keys [][]string
	for _, row := range vm.Rows {
		var rowKeys []string
		for _, a := range row.Actions {
			rowKeys = append(rowKeys, a.Key)
		}
		keys = append(keys, rowKeys)
	}
	// user 1 is an admin, user 2 is not
	want := [][]string{{"edit", "delete"}, {"edit", "promote", "delete"}}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	if got := vm.Rows[1].Href.String(); got != "/users/2" {
		t.Errorf("row href = %q", got)
	}
	if got := vm.Rows[1].Actions[0].Href.String(); got != "/users/2/edit" {
		t.Errorf("edit href = %q", got)
	}
	if !vm.Rows[1].Actions[1].IsPost || !vm.Rows[1].Actions[2].Danger {
		t.Error("post and confirm flags not carried")
	}
}

func TestCustomRender(t *testing.T) {
	data := tables.Records(makeUsers(1))
	vm := BuildTableViewModel(TableProps{
		Data:         data,
		FilteredData: data,
		Columns: []tables.Column{
			{Key: "role", Title: "Role", Render: BadgeRenderer(map[string]string{"admin": "danger"})},
		},
	})
	got := vm.Rows[0].Cells[0].String()
	if want := `<span class="badge badge-danger">ADMIN</span>`; got != want {
		t.Errorf("badge = %q, want %q", got, want)
	}
}
