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

package charts

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 17, 8, 30, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-17T08:30:00Z", want},
		{"2024-05-17T10:30:00+02:00", want},
		{"2024-05-17T08:30:00", want},
		{"2024-05-17T08:30:00.000", want},
		{"2024-05-17 08:30:00", want},
		{"2024-05-17", time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)},
		{"1715934600", want},
		{"1715934600000", want},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) error: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "  ", "null", "yesterday", "2024-13-45"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Errorf("ParseTimestamp(%q) expected error", bad)
		}
	}
}

func TestDateRangeInclusive(t *testing.T) {
	r := ParseDateRange("2024-03-01", "2024-03-31")
	tests := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC), false},
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), true},
		{time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.at); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}

	open := ParseDateRange("", "not-a-date")
	if !open.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("open range should contain everything")
	}
}

func TestMonthlyCounts(t *testing.T) {
	stamps := []string{
		"2023-11-02T10:00:00Z", // before range
		"2023-12-01T09:00:00Z",
		"2023-12-24T18:00:00Z",
		"2024-01-05T07:00:00Z",
		"2024-01-31",
		"2024-02-14T12:00:00Z",
		"2024-03-01T00:00:00Z", // after range
		"",
		"garbage",
	}
	r := ParseDateRange("2023-12-01", "2024-02-29")

	got := MonthlyCounts(stamps, r)
	want := map[int][12]int{
		2023: {11: 2},
		2024: {0: 2, 1: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MonthlyCounts mismatch (-want +got):\n%s", diff)
	}

	inRangeCount := 0
	for _, months := range got {
		for _, n := range months {
			inRangeCount += n
		}
	}
	if inRangeCount != 5 {
		t.Errorf("sum of buckets = %d, want 5", inRangeCount)
	}
}

func TestWeeklyCounts(t *testing.T) {
	stamps := []string{
		"2024-05-13T10:00:00Z", // Monday
		"2024-05-14T10:00:00Z", // Tuesday
		"2024-05-19T10:00:00Z", // Sunday
		"2024-05-20T10:00:00Z", // Monday
		"invalid",
	}
	got := WeeklyCounts(stamps, DateRange{}, time.Monday)
	want := [7]int{2, 1, 0, 0, 0, 0, 1}
	if got != want {
		t.Errorf("WeeklyCounts = %v, want %v", got, want)
	}

	sunday := WeeklyCounts(stamps, DateRange{}, time.Sunday)
	if sunday[0] != 1 || sunday[1] != 2 {
		t.Errorf("Sunday-first counts = %v", sunday)
	}
	if diff := cmp.Diff([]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, WeekdayLabels(time.Monday)); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestDonutCounts(t *testing.T) {
	got := DonutCounts([]string{"HIGH", "LOW", "HIGH", "", "MEDIUM", "LOW", "HIGH", " "})
	want := []Slice{
		{Label: "HIGH", Count: 3, Percent: 37.5},
		{Label: "LOW", Count: 2, Percent: 25},
		{Label: "Unknown", Count: 2, Percent: 25},
		{Label: "MEDIUM", Count: 1, Percent: 12.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DonutCounts mismatch (-want +got):\n%s", diff)
	}
	if len(DonutCounts(nil)) != 0 {
		t.Error("no labels, no slices")
	}
}

func TestBarsAndSeries(t *testing.T) {
	bars := Bars([]string{"a", "b", "c"}, []int{2, 8, 0})
	want := []Bar{{"a", 2, 25}, {"b", 8, 100}, {"c", 0, 0}}
	if diff := cmp.Diff(want, bars); diff != "" {
		t.Errorf("Bars mismatch (-want +got):\n%s", diff)
	}

	series := MonthlySeries(map[int][12]int{2024: {3: 4}, 2023: {0: 1}})
	if len(series) != 2 || series[0].Year != 2023 || series[1].Total != 4 {
		t.Fatalf("unexpected series %+v", series)
	}
	if len(series[1].Bars) != 12 || series[1].Bars[3].Height != 100 {
		t.Errorf("april bar = %+v", series[1].Bars[3])
	}
}
