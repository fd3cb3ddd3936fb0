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

// Package pages holds the console's host pages. A host page owns its data:
// it fetches records from the backends, applies the filters and the page
// window, and hands the generic table everything it renders.
package pages

import (
	"context"
	"sort"
	"strings"

	"github.com/google/safehtml"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/query"
	"github.com/trafficeye/console/core/tables"
	"github.com/trafficeye/console/core/users"
	"github.com/trafficeye/console/core/views"
)

// Page is a list page the server can route to.
type Page interface {
	Meta() Meta
	// Load fetches and prepares one page of the table for id.
	Load(ctx context.Context, id *users.Identity, q *query.Query) views.TableProps
	// Rows returns every filtered record as text, for exports.
	Rows(ctx context.Context, id *users.Identity, q *query.Query) (headers []string, rows [][]string, err error)
}

// Meta describes a list page.
type Meta struct {
	Name      string // resource name, e.g. "vehicles"
	Title     string
	Path      string
	AdminOnly bool
	NewURL    string // create form, empty when records cannot be created here
	NewLabel  string
}

// ExportColumn is a column of the text export.
type ExportColumn struct {
	Title  string
	Key    string
	Format func(value any) string // optional
}

// List is a Page over records of type T.
type List[T any] struct {
	Info Meta

	RowKey  string
	Columns []tables.Column
	Filters []tables.Filter
	Export  []ExportColumn

	// OptionsFrom fills select filters from the distinct values found at a
	// record path, keyed by filter key.
	OptionsFrom map[string]string

	Actions func(id *users.Identity, q *query.Query) []tables.Action
	RowHref func(record any, index int) safehtml.URL
	Fetch   func(ctx context.Context, id *users.Identity) ([]T, error)
}

// Meta returns the page description.
func (l *List[T]) Meta() Meta {
	return l.Info
}

func (l *List[T]) filters(records []T) []tables.Filter {
	if len(l.OptionsFrom) == 0 {
		return l.Filters
	}
	out := make([]tables.Filter, len(l.Filters))
	copy(out, l.Filters)
	for i, f := range out {
		if path, ok := l.OptionsFrom[f.Key]; ok {
			out[i].Options = DistinctOptions(records, path)
		}
	}
	return out
}

// Load implements Page.
func (l *List[T]) Load(ctx context.Context, id *users.Identity, q *query.Query) views.TableProps {
	props := views.TableProps{
		Caption:      l.Info.Title,
		Columns:      l.Columns,
		RowKey:       l.RowKey,
		Filters:      l.Filters,
		FilterValues: q.Filters,
		RowHref:      l.RowHref,
		Query:        q,
		Retry:        true,
	}
	if l.Actions != nil {
		props.Actions = l.Actions(id, q)
	}

	records, err := l.Fetch(ctx, id)
	if err != nil {
		props.Error = api.Message(err)
		return props
	}

	props.Filters = l.filters(records)
	filtered := tables.ApplyFilters(records, props.Filters, q.Filters)
	page, pagination := tables.Paginate(filtered, q.Page, q.PageSize)
	pagination.PageSizeChangeable = true

	props.Data = tables.Records(records)
	props.FilteredData = tables.Records(page)
	props.Pagination = pagination
	return props
}

// Rows implements Page.
func (l *List[T]) Rows(ctx context.Context, id *users.Identity, q *query.Query) ([]string, [][]string, error) {
	records, err := l.Fetch(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	filtered := tables.ApplyFilters(records, l.filters(records), q.Filters)

	headers := make([]string, len(l.Export))
	for i, c := range l.Export {
		headers[i] = c.Title
	}
	rows := make([][]string, 0, len(filtered))
	for _, record := range filtered {
		row := make([]string, len(l.Export))
		for i, c := range l.Export {
			value, _ := tables.GetNestedValue(record, c.Key)
			if c.Format != nil {
				row[i] = c.Format(value)
			} else {
				row[i] = tables.CellText(value)
			}
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

// DistinctOptions collects the sorted distinct non-empty values at path.
func DistinctOptions[T any](records []T, path string) []tables.Option {
	seen := make(map[string]bool)
	var values []string
	for _, r := range records {
		v := tables.LookupText(r, path)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	opts := make([]tables.Option, len(values))
	for i, v := range values {
		opts[i] = tables.Option{Value: v, Label: views.Title(v)}
	}
	return opts
}

func fixedOptions(values ...string) []tables.Option {
	opts := make([]tables.Option, len(values))
	for i, v := range values {
		opts[i] = tables.Option{Value: v, Label: views.Title(v)}
	}
	return opts
}

// Registry holds the list pages by name.
type Registry struct {
	order []Page
	byKey map[string]Page
}

// NewRegistry builds every list page on top of client.
func NewRegistry(client *api.Client) *Registry {
	r := &Registry{byKey: make(map[string]Page)}
	for _, p := range []Page{
		Users(client),
		Vehicles(client),
		Accidents(client),
		Violations(client),
		Cameras(client),
	} {
		r.order = append(r.order, p)
		r.byKey[p.Meta().Name] = p
	}
	return r
}

// Get returns the page for a resource name.
func (r *Registry) Get(name string) (Page, bool) {
	p, ok := r.byKey[strings.ToLower(name)]
	return p, ok
}

// All returns the pages in registration order.
func (r *Registry) All() []Page {
	return r.order
}

// Names returns the resource names.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, p := range r.order {
		names[i] = p.Meta().Name
	}
	return names
}
