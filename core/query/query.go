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
	"sort"
	"strconv"
	"strings"

	"github.com/google/safehtml"
)

// DefaultPageSize is the page size used when the URL does not carry one.
const DefaultPageSize = 10

// Form field names used by filter forms. Form inputs cannot carry the
// "filter:<key>" name directly, so a form sends each key and value as a pair.
const (
	FormKeyParam   = "fk"
	FormValueParam = "fv"
)

// PageSizes lists the page sizes offered by the page-size selector.
var PageSizes = []int{10, 25, 50, 100}

// Query represents the parsed state of a list page URL
type Query struct {
	// Base path (e.g., "/vehicles")
	Path string

	Filters       map[string]string // Filter values (filterKey -> value), empty values are inactive
	Page          int               // Current page, 1-based
	PageSize      int               // Rows per page, one of PageSizes
	FiltersOpen   bool              // filters=open, the panel was expanded explicitly
	FiltersClosed bool              // filters=closed, the panel was collapsed explicitly
	From          string            // Date range start (YYYY-MM-DD), optional
	To            string            // Date range end (YYYY-MM-DD), optional

	// Extra keeps unrelated parameters so links preserve them
	Extra url.Values
}

// NewQuery creates a Query from a URL
func NewQuery(u *url.URL) *Query {
	state := &Query{
		Path:     u.Path,
		Filters:  make(map[string]string),
		Page:     1,
		PageSize: DefaultPageSize,
		Extra:    url.Values{},
	}

	q := u.Query()

	// Extract filter parameters (format: filter:key=value)
	for key, values := range q {
		switch {
		case strings.HasPrefix(key, "filter:") && len(values) > 0:
			filterKey := strings.TrimPrefix(key, "filter:")
			if filterKey != "" {
				state.Filters[filterKey] = strings.TrimSpace(values[0])
			}
		case key == "page", key == "size", key == "filters", key == "from", key == "to",
			key == FormKeyParam, key == FormValueParam:
			// handled below
		default:
			state.Extra[key] = append([]string(nil), values...)
		}
	}

	// Filter forms submit keys and values as parallel fk/fv fields
	keys, vals := q[FormKeyParam], q[FormValueParam]
	for i := 0; i < len(keys) && i < len(vals); i++ {
		if keys[i] != "" {
			state.Filters[keys[i]] = strings.TrimSpace(vals[i])
		}
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil && page >= 1 {
		state.Page = page
	}
	if size, err := strconv.Atoi(q.Get("size")); err == nil && IsValidPageSize(size) {
		state.PageSize = size
	}

	switch q.Get("filters") {
	case "open":
		state.FiltersOpen = true
	case "closed":
		state.FiltersClosed = true
	}
	state.From = validDate(q.Get("from"))
	state.To = validDate(q.Get("to"))

	return state
}

// IsValidPageSize reports whether size is one of PageSizes.
func IsValidPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// validDate keeps only YYYY-MM-DD shaped values
func validDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return ""
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return ""
		}
	}
	return s
}

// Clone creates a deep copy of the Query
func (s *Query) Clone() *Query {
	clone := &Query{
		Path:          s.Path,
		Filters:       make(map[string]string, len(s.Filters)),
		Page:          s.Page,
		PageSize:      s.PageSize,
		FiltersOpen:   s.FiltersOpen,
		FiltersClosed: s.FiltersClosed,
		From:          s.From,
		To:            s.To,
		Extra:         url.Values{},
	}

	for key, value := range s.Filters {
		clone.Filters[key] = value
	}
	for key, values := range s.Extra {
		clone.Extra[key] = append([]string(nil), values...)
	}

	return clone
}

// HasActiveFilters reports whether any filter value is non-empty
func (s *Query) HasActiveFilters() bool {
	for _, value := range s.Filters {
		if value != "" {
			return true
		}
	}
	return false
}

// Filter returns the value of a filter, or "" when unset
func (s *Query) Filter(key string) string {
	return s.Filters[key]
}

// WithFilter returns a URL with the filter set. An empty value clears it.
// Changing a filter always returns to the first page.
func (s *Query) WithFilter(key, value string) safehtml.URL {
	newState := s.Clone()
	if value == "" {
		delete(newState.Filters, key)
	} else {
		newState.Filters[key] = value
	}
	newState.Page = 1
	return newState.ToSafeURL()
}

// WithoutFilter returns a URL with the filter cleared
func (s *Query) WithoutFilter(key string) safehtml.URL {
	return s.WithFilter(key, "")
}

// WithFiltersReset returns a URL with every filter cleared
func (s *Query) WithFiltersReset() safehtml.URL {
	newState := s.Clone()
	newState.Filters = make(map[string]string)
	newState.Page = 1
	return newState.ToSafeURL()
}

// FiltersExpanded reports whether the filter panel is shown. Active filters
// expand it unless it was collapsed explicitly.
func (s *Query) FiltersExpanded() bool {
	if s.FiltersOpen {
		return true
	}
	return !s.FiltersClosed && s.HasActiveFilters()
}

// WithFiltersToggled returns a URL with the filter panel in the opposite of
// its current state
func (s *Query) WithFiltersToggled() safehtml.URL {
	newState := s.Clone()
	expand := !s.FiltersExpanded()
	newState.FiltersOpen = expand
	newState.FiltersClosed = !expand
	return newState.ToSafeURL()
}

// WithPage returns a URL for a different page
func (s *Query) WithPage(page int) safehtml.URL {
	newState := s.Clone()
	if page < 1 {
		page = 1
	}
	newState.Page = page
	return newState.ToSafeURL()
}

// WithPageSize returns a URL with a different page size, back on the first page
func (s *Query) WithPageSize(size int) safehtml.URL {
	newState := s.Clone()
	if IsValidPageSize(size) {
		newState.PageSize = size
	}
	newState.Page = 1
	return newState.ToSafeURL()
}

// WithPath returns a URL for another path carrying the same state
func (s *Query) WithPath(path string) safehtml.URL {
	newState := s.Clone()
	newState.Path = path
	return newState.ToSafeURL()
}

// ToURL converts the Query back to a URL string
func (s *Query) ToURL() string {
	u := &url.URL{
		Path: s.Path,
	}

	q := url.Values{}
	for key, values := range s.Extra {
		q[key] = append([]string(nil), values...)
	}

	// Add filter parameters (format: filter:key=value)
	keys := make([]string, 0, len(s.Filters))
	for key := range s.Filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if value := s.Filters[key]; value != "" {
			q.Set("filter:"+key, value)
		}
	}

	if s.Page > 1 {
		q.Set("page", strconv.Itoa(s.Page))
	}
	if s.PageSize != 0 && s.PageSize != DefaultPageSize {
		q.Set("size", strconv.Itoa(s.PageSize))
	}
	switch {
	case s.FiltersOpen:
		q.Set("filters", "open")
	case s.FiltersClosed:
		q.Set("filters", "closed")
	}
	if s.From != "" {
		q.Set("from", s.From)
	}
	if s.To != "" {
		q.Set("to", s.To)
	}

	u.RawQuery = q.Encode()
	return u.String()
}

// ToSafeURL converts the Query to a safehtml.URL
func (s *Query) ToSafeURL() safehtml.URL {
	return safehtml.URLSanitized(s.ToURL())
}
