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
	"strings"
)

// ApplyFilters returns the records matching every active filter value, in
// their original order. Select filters match the field exactly, text
// filters match a case-insensitive substring of any of their Fields. Empty
// values and values for undeclared filters are ignored. The input slice is
// never modified.
func ApplyFilters[T any](records []T, filters []Filter, values map[string]string) []T {
	active := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if strings.TrimSpace(values[f.Key]) != "" {
			active = append(active, f)
		}
	}

	result := make([]T, 0, len(records))
	for _, record := range records {
		keep := true
		for _, f := range active {
			if !Matches(f, record, strings.TrimSpace(values[f.Key])) {
				keep = false
				break
			}
		}
		if keep {
			result = append(result, record)
		}
	}
	return result
}

// Matches reports whether a single record passes a filter value.
func Matches(f Filter, record any, value string) bool {
	if f.Match != nil {
		return f.Match(record, value)
	}

	fields := f.Fields
	if len(fields) == 0 {
		fields = []string{f.Key}
	}

	switch f.Type {
	case FilterSelect:
		for _, field := range fields {
			if LookupText(record, field) == value {
				return true
			}
		}
		return false
	default:
		needle := strings.ToLower(value)
		for _, field := range fields {
			if strings.Contains(strings.ToLower(LookupText(record, field)), needle) {
				return true
			}
		}
		return false
	}
}
