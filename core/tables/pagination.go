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

// maxPageButtons is the width of the page-number window.
const maxPageButtons = 5

// PageWindow returns the page numbers to show around the current page: at
// most five, centered on current and clamped to [1, total].
func PageWindow(current, total int) []int {
	if total < 1 {
		return nil
	}
	half := maxPageButtons / 2
	start := max(current-half, 1)
	end := min(start+maxPageButtons-1, total)
	start = max(end-maxPageButtons+1, 1)

	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}

// TotalPages returns the number of pages needed for items rows.
func TotalPages(items, pageSize int) int {
	if items <= 0 || pageSize <= 0 {
		return 0
	}
	return (items + pageSize - 1) / pageSize
}

// ClampPage keeps page within [1, total]. With no pages it returns 1.
func ClampPage(page, total int) int {
	if total < 1 || page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// PageBounds returns the half-open slice bounds of a page over n items.
func PageBounds(page, pageSize, n int) (start, end int) {
	if pageSize <= 0 {
		return 0, n
	}
	start = (page - 1) * pageSize
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end = min(start+pageSize, n)
	return start, end
}

// Paginate clamps the requested page and returns its records together with
// the pagination state describing it.
func Paginate[T any](records []T, page, pageSize int) ([]T, Pagination) {
	total := TotalPages(len(records), pageSize)
	page = ClampPage(page, total)
	start, end := PageBounds(page, pageSize, len(records))

	return records[start:end], Pagination{
		Enabled:     true,
		CurrentPage: page,
		TotalPages:  total,
		PageSize:    pageSize,
		TotalItems:  len(records),
	}
}

// Records converts a typed slice into the []any the table renders.
func Records[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
