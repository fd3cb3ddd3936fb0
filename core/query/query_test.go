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

package query

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func parse(t *testing.T, raw string) *Query {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("bad url %q: %v", raw, err)
	}
	return NewQuery(u)
}

// reparse follows a generated link the way a browser would
func reparse(t *testing.T, link interface{ String() string }) *Query {
	t.Helper()
	return parse(t, link.String())
}

func TestNewQueryDefaults(t *testing.T) {
	q := parse(t, "/vehicles")
	if q.Page != 1 || q.PageSize != DefaultPageSize {
		t.Errorf("expected page 1 size %d, got page %d size %d", DefaultPageSize, q.Page, q.PageSize)
	}
	if q.HasActiveFilters() {
		t.Error("no filters expected")
	}
	if q.FiltersOpen {
		t.Error("filter panel should start collapsed")
	}
}

func TestNewQueryParsesState(t *testing.T) {
	q := parse(t, "/accidents?filter:search=A12&filter:status=&page=3&size=25&filters=open&from=2024-01-01&to=2024-13-xx&tab=map")

	wantFilters := map[string]string{"search": "A12", "status": ""}
	if diff := cmp.Diff(wantFilters, q.Filters); diff != "" {
		t.Errorf("filters mismatch (-want +got):\n%s", diff)
	}
	if q.Page != 3 || q.PageSize != 25 {
		t.Errorf("page/size = %d/%d", q.Page, q.PageSize)
	}
	if !q.FiltersOpen {
		t.Error("filters=open should expand the panel")
	}
	if q.From != "2024-01-01" {
		t.Errorf("from = %q", q.From)
	}
	if q.To != "" {
		t.Errorf("malformed to date should be dropped, got %q", q.To)
	}
	if q.Extra.Get("tab") != "map" {
		t.Errorf("extra params should be preserved, got %v", q.Extra)
	}
	if !q.HasActiveFilters() {
		t.Error("search filter is active")
	}
}

func TestNewQueryRejectsInvalidPaging(t *testing.T) {
	q := parse(t, "/users?page=-2&size=7")
	if q.Page != 1 {
		t.Errorf("negative page should fall back to 1, got %d", q.Page)
	}
	if q.PageSize != DefaultPageSize {
		t.Errorf("unsupported size should fall back to default, got %d", q.PageSize)
	}
}

func TestWithFilterResetsPage(t *testing.T) {
	q := parse(t, "/vehicles?page=4&size=50")

	next := reparse(t, q.WithFilter("type", "truck"))
	if next.Page != 1 {
		t.Errorf("changing a filter should return to page 1, got %d", next.Page)
	}
	if next.PageSize != 50 {
		t.Errorf("page size should be preserved, got %d", next.PageSize)
	}
	if next.Filter("type") != "truck" {
		t.Errorf("type filter = %q", next.Filter("type"))
	}
	// Original query is untouched
	if q.Page != 4 || q.Filter("type") != "" {
		t.Error("WithFilter must not mutate the receiver")
	}
}

func TestWithoutFilterAndReset(t *testing.T) {
	q := parse(t, "/users?filter:role=ADMIN&filter:search=ana")

	cleared := reparse(t, q.WithoutFilter("role"))
	if diff := cmp.Diff(map[string]string{"search": "ana"}, cleared.Filters); diff != "" {
		t.Errorf("WithoutFilter mismatch (-want +got):\n%s", diff)
	}

	reset := reparse(t, q.WithFiltersReset())
	if reset.HasActiveFilters() {
		t.Errorf("reset should clear every filter, got %v", reset.Filters)
	}
}

func TestWithPageSizeReturnsToFirstPage(t *testing.T) {
	q := parse(t, "/accidents?page=3")

	next := reparse(t, q.WithPageSize(25))
	if next.Page != 1 || next.PageSize != 25 {
		t.Errorf("got page %d size %d, want page 1 size 25", next.Page, next.PageSize)
	}

	ignored := reparse(t, q.WithPageSize(33))
	if ignored.PageSize != DefaultPageSize {
		t.Errorf("unsupported size should be ignored, got %d", ignored.PageSize)
	}
}

func TestWithPageAndToggle(t *testing.T) {
	q := parse(t, "/violations?filter:status=PENDING")

	p2 := reparse(t, q.WithPage(2))
	if p2.Page != 2 || p2.Filter("status") != "PENDING" {
		t.Errorf("WithPage lost state: page %d filters %v", p2.Page, p2.Filters)
	}

	p0 := reparse(t, q.WithPage(0))
	if p0.Page != 1 {
		t.Errorf("page below 1 should clamp to 1, got %d", p0.Page)
	}

	// An active filter expands the panel, so the first toggle collapses it.
	if !q.FiltersExpanded() {
		t.Fatal("active filters should expand the panel")
	}
	closed := reparse(t, q.WithFiltersToggled())
	if closed.FiltersExpanded() || !closed.FiltersClosed {
		t.Errorf("toggle should collapse the panel: %+v", closed)
	}
	if closed.Filter("status") != "PENDING" {
		t.Errorf("toggle lost filters: %v", closed.Filters)
	}
	reopened := reparse(t, closed.WithFiltersToggled())
	if !reopened.FiltersExpanded() || reopened.FiltersClosed {
		t.Errorf("second toggle should expand the panel: %+v", reopened)
	}
}

func TestToggleWithoutFilters(t *testing.T) {
	q := parse(t, "/vehicles")
	if q.FiltersExpanded() {
		t.Fatal("panel should start collapsed")
	}
	open := q.WithFiltersToggled()
	if got := open.String(); got != "/vehicles?filters=open" {
		t.Errorf("open url = %q", got)
	}
	if got := reparse(t, open).WithFiltersToggled().String(); got != "/vehicles?filters=closed" {
		t.Errorf("closed url = %q", got)
	}
}

func TestToURLOmitsDefaults(t *testing.T) {
	q := parse(t, "/vehicles?filter:search=")
	if got := q.ToURL(); got != "/vehicles" {
		t.Errorf("ToURL() = %q, want /vehicles", got)
	}

	q = parse(t, "/vehicles?size=100&page=2&filter:type=car")
	if got, want := q.ToURL(), "/vehicles?filter%3Atype=car&page=2&size=100"; got != want {
		t.Errorf("ToURL() = %q, want %q", got, want)
	}
}

func TestWithPath(t *testing.T) {
	q := parse(t, "/vehicles?filter:type=car")
	export := reparse(t, q.WithPath("/vehicles/export.pdf"))
	if export.Path != "/vehicles/export.pdf" || export.Filter("type") != "car" {
		t.Errorf("WithPath = %s %v", export.Path, export.Filters)
	}
}

func TestNewQueryReadsFilterFormPairs(t *testing.T) {
	q := parse(t, "/accidents?fk=search&fv=+main+st&fk=severity&fv=HIGH&fk=status&fv=&filters=open")
	if q.Filter("search") != "main st" || q.Filter("severity") != "HIGH" || q.Filter("status") != "" {
		t.Errorf("filters = %v", q.Filters)
	}
	if got, want := q.ToURL(), "/accidents?filter%3Asearch=main+st&filter%3Aseverity=HIGH&filters=open"; got != want {
		t.Errorf("ToURL() = %q, want %q", got, want)
	}
}
