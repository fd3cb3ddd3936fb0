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

package tables

import (
	"github.com/google/safehtml"
)

// Column maps a record field to a table header and cell.
type Column struct {
	Key   string // dot path into the record, e.g. "vehicle.plate"
	Title string // header text
	Width string // optional width hint, e.g. "120"

	// Render produces the cell content. When nil the resolved value is
	// rendered as text.
	Render func(value any, record any, index int) safehtml.HTML
}

// Action methods
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// Action is a per-row operation rendered in the actions column.
type Action struct {
	Key    string
	Label  string
	Icon   string // optional glyph shown before the label
	Method string // MethodGet (link) or MethodPost (form button); defaults to GET

	// Confirm marks a destructive action. Its Href points at a confirm page.
	Confirm bool

	// Href returns the target for a record. The table never performs the
	// action itself; the target owns it.
	Href func(record any, index int) safehtml.URL

	// Visible hides the action for records it does not apply to.
	Visible func(record any) bool
}

// FilterType selects the control rendered for a filter.
type FilterType string

const (
	FilterText   FilterType = "text"
	FilterSelect FilterType = "select"
)

// Option is one choice of a select filter.
type Option struct {
	Value string
	Label string
}

// Filter declares one filter control.
type Filter struct {
	Key         string
	Label       string
	Type        FilterType
	Options     []Option // select only
	Placeholder string   // text only

	// Fields are the record paths a text filter searches. Defaults to Key.
	Fields []string

	// Match overrides the default comparison when set.
	Match func(record any, value string) bool
}

// OptionLabel returns the label for a select value, or the value itself.
func (f Filter) OptionLabel(value string) string {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// Pagination describes the current page of a paginated table.
type Pagination struct {
	Enabled     bool
	CurrentPage int // 1-based
	TotalPages  int
	PageSize    int
	TotalItems  int // number of filtered records across all pages

	// PageSizeChangeable enables the page-size selector.
	PageSizeChangeable bool
}
