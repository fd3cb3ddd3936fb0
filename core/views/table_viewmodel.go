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
	"sort"

	"github.com/google/safehtml"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/trafficeye/console/core/query"
	"github.com/trafficeye/console/core/tables"
)

// TableProps is everything a host page hands to the generic table. The
// table owns no data; every interaction is a link derived from Query.
type TableProps struct {
	Caption string

	Data         []any // full, unfiltered record set
	FilteredData []any // records to render, already filtered and paged by the host

	Columns      []tables.Column
	RowKey       string
	Actions      []tables.Action
	Filters      []tables.Filter
	FilterValues map[string]string
	Pagination   tables.Pagination

	Loading bool
	Error   string
	Retry   bool // offer a retry link for Error

	// RowHref makes rows clickable when set.
	RowHref func(record any, index int) safehtml.URL

	Query *query.Query
}

// TableViewModel contains the table formatted for template consumption
type TableViewModel struct {
	Caption string
	Headers []HeaderCell
	Rows    []RowView

	HasActions bool

	// ReturnURL is the current list URL, posted with row actions so the
	// target can redirect back
	ReturnURL safehtml.URL

	// Filter bar, nil when the table declares no filters
	FilterBar        *FilterBarView
	Chips            []ChipView
	HasActiveFilters bool
	ResetURL         safehtml.URL

	Info      InfoBar
	Pager     *PagerView       // nil when pagination is hidden
	PageSizes []PageSizeOption // empty when the page size cannot be changed

	Loading      bool
	Error        string
	HasRetry     bool
	RetryURL     safehtml.URL
	Empty        bool
	EmptyMessage string
}

// HeaderCell is one column header
type HeaderCell struct {
	Title string
	Width string
}

// RowView is one rendered record
type RowView struct {
	Key     string
	Index   int
	HasHref bool
	Href    safehtml.URL
	Cells   []safehtml.HTML
	Actions []ActionView
}

// ActionView is one rendered row action
type ActionView struct {
	Key    string
	Label  string
	Icon   string
	IsPost bool
	Danger bool
	Href   safehtml.URL
}

// FilterBarView holds the filter controls
type FilterBarView struct {
	Expanded  bool
	ToggleURL safehtml.URL
	Action    safehtml.URL // form target, the list path
	Controls  []FilterControl

	// PageSize is carried through the filter form when it is not the default
	PageSize int
}

// FilterControl is a text input or select
type FilterControl struct {
	Key         string
	Label       string
	IsSelect    bool
	Value       string
	Placeholder string
	Options     []OptionView
}

// OptionView is one select option
type OptionView struct {
	Value    string
	Label    string
	Selected bool
}

// ChipView is one active filter with its own clear link
type ChipView struct {
	Key      string
	Label    string
	Value    string
	ClearURL safehtml.URL
}

// InfoBar is the "Showing X to Y of Z entries" line
type InfoBar struct {
	Start    int
	End      int
	Count    int
	Total    int
	Filtered bool
	Text     string
}

// PagerView holds the pagination controls
type PagerView struct {
	Pages        []PageLink
	PrevURL      safehtml.URL
	NextURL      safehtml.URL
	PrevDisabled bool
	NextDisabled bool
}

// PageLink is one page-number button
type PageLink struct {
	Number  int
	URL     safehtml.URL
	Current bool
}

// PageSizeOption is one entry of the page-size selector
type PageSizeOption struct {
	Size     int
	URL      safehtml.URL
	Selected bool
}

var printer = message.NewPrinter(language.English)

// BuildTableViewModel renders TableProps into a TableViewModel
func BuildTableViewModel(p TableProps) TableViewModel {
	q := p.Query
	if q == nil {
		q = &query.Query{Filters: map[string]string{}, Page: 1, PageSize: query.DefaultPageSize}
	}
	values := p.FilterValues
	if values == nil {
		values = q.Filters
	}

	vm := TableViewModel{
		Caption:    p.Caption,
		HasActions: len(p.Actions) > 0,
		Loading:    p.Loading,
		ResetURL:   q.WithFiltersReset(),
		ReturnURL:  q.ToSafeURL(),
	}

	for _, col := range p.Columns {
		vm.Headers = append(vm.Headers, HeaderCell{Title: col.Title, Width: col.Width})
	}

	if len(p.Filters) > 0 {
		vm.FilterBar = buildFilterBar(p.Filters, values, q)
	}
	vm.Chips = buildChips(p.Filters, values, q)
	vm.HasActiveFilters = len(vm.Chips) > 0

	vm.Info = buildInfoBar(p)

	if p.Pagination.Enabled && p.Pagination.TotalPages > 1 {
		vm.Pager = buildPager(p.Pagination, q)
	}
	if p.Pagination.Enabled && p.Pagination.PageSizeChangeable {
		for _, size := range query.PageSizes {
			vm.PageSizes = append(vm.PageSizes, PageSizeOption{
				Size:     size,
				URL:      q.WithPageSize(size),
				Selected: size == p.Pagination.PageSize,
			})
		}
	}

	switch {
	case p.Loading:
		// Spinner only
	case p.Error != "":
		vm.Error = p.Error
		if p.Retry {
			vm.HasRetry = true
			vm.RetryURL = q.ToSafeURL()
		}
	case len(p.FilteredData) == 0:
		vm.Empty = true
		vm.EmptyMessage = "No records found"
		if vm.HasActiveFilters {
			vm.EmptyMessage += " matching your filters"
		}
	default:
		vm.Rows = buildRows(p)
	}

	return vm
}

func buildRows(p TableProps) []RowView {
	rows := make([]RowView, 0, len(p.FilteredData))
	for i, record := range p.FilteredData {
		row := RowView{
			Key:   tables.LookupText(record, p.RowKey),
			Index: i,
		}
		if p.RowHref != nil {
			row.HasHref = true
			row.Href = p.RowHref(record, i)
		}
		for _, col := range p.Columns {
			value, _ := tables.GetNestedValue(record, col.Key)
			if col.Render != nil {
				row.Cells = append(row.Cells, col.Render(value, record, i))
			} else {
				row.Cells = append(row.Cells, safehtml.HTMLEscaped(tables.CellText(value)))
			}
		}
		for _, action := range p.Actions {
			if action.Visible != nil && !action.Visible(record) {
				continue
			}
			av := ActionView{
				Key:    action.Key,
				Label:  action.Label,
				Icon:   action.Icon,
				IsPost: action.Method == tables.MethodPost,
				Danger: action.Confirm,
			}
			if action.Href != nil {
				av.Href = action.Href(record, i)
			}
			row.Actions = append(row.Actions, av)
		}
		rows = append(rows, row)
	}
	return rows
}

func buildFilterBar(filters []tables.Filter, values map[string]string, q *query.Query) *FilterBarView {
	bar := &FilterBarView{
		Expanded:  q.FiltersExpanded(),
		ToggleURL: q.WithFiltersToggled(),
		Action:    safehtml.URLSanitized(q.Path),
	}
	if q.PageSize != query.DefaultPageSize {
		bar.PageSize = q.PageSize
	}

	for _, f := range filters {
		control := FilterControl{
			Key:         f.Key,
			Label:       f.Label,
			IsSelect:    f.Type == tables.FilterSelect,
			Value:       values[f.Key],
			Placeholder: f.Placeholder,
		}
		if control.IsSelect {
			control.Options = append(control.Options, OptionView{Value: "", Label: "All", Selected: values[f.Key] == ""})
			for _, opt := range f.Options {
				control.Options = append(control.Options, OptionView{
					Value:    opt.Value,
					Label:    opt.Label,
					Selected: opt.Value == values[f.Key],
				})
			}
		}
		bar.Controls = append(bar.Controls, control)
	}
	return bar
}

func buildChips(filters []tables.Filter, values map[string]string, q *query.Query) []ChipView {
	var chips []ChipView
	declared := make(map[string]bool, len(filters))
	for _, f := range filters {
		declared[f.Key] = true
		value := values[f.Key]
		if value == "" {
			continue
		}
		chips = append(chips, ChipView{
			Key:      f.Key,
			Label:    f.Label,
			Value:    f.OptionLabel(value),
			ClearURL: q.WithFilter(f.Key, ""),
		})
	}

	// Values without a declared filter still show, by key
	var extra []string
	for key, value := range values {
		if !declared[key] && value != "" {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		chips = append(chips, ChipView{
			Key:      key,
			Label:    key,
			Value:    values[key],
			ClearURL: q.WithFilter(key, ""),
		})
	}
	return chips
}

func buildInfoBar(p TableProps) InfoBar {
	info := InfoBar{Total: len(p.Data)}

	if p.Pagination.Enabled {
		info.Count = p.Pagination.TotalItems
		if info.Count > 0 {
			start, end := tables.PageBounds(p.Pagination.CurrentPage, p.Pagination.PageSize, info.Count)
			info.Start = start + 1
			info.End = end
		}
	} else {
		info.Count = len(p.FilteredData)
		if info.Count > 0 {
			info.Start = 1
			info.End = info.Count
		}
	}

	info.Filtered = info.Count != info.Total
	info.Text = printer.Sprintf("Showing %d to %d of %d entries", info.Start, info.End, info.Count)
	if info.Filtered && info.Count < info.Total {
		info.Text += printer.Sprintf(" (filtered from %d total)", info.Total)
	}
	return info
}

func buildPager(pg tables.Pagination, q *query.Query) *PagerView {
	pager := &PagerView{
		PrevDisabled: pg.CurrentPage <= 1,
		NextDisabled: pg.CurrentPage >= pg.TotalPages,
	}
	if !pager.PrevDisabled {
		pager.PrevURL = q.WithPage(pg.CurrentPage - 1)
	}
	if !pager.NextDisabled {
		pager.NextURL = q.WithPage(pg.CurrentPage + 1)
	}
	for _, n := range tables.PageWindow(pg.CurrentPage, pg.TotalPages) {
		pager.Pages = append(pager.Pages, PageLink{
			Number:  n,
			URL:     q.WithPage(n),
			Current: n == pg.CurrentPage,
		})
	}
	return pager
}
