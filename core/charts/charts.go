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

// Package charts turns timestamped records into the counts behind the
// statistics dashboards.
package charts

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// timestampFormats lists formats to try when parsing timestamps, in order of preference.
var timestampFormats = []string{
	time.RFC3339Nano,          // 2006-01-02T15:04:05.999999999Z07:00
	time.RFC3339,              // 2006-01-02T15:04:05Z07:00
	"2006-01-02T15:04:05",     // ISO without timezone
	"2006-01-02T15:04:05.000", // ISO with milliseconds no TZ
	"2006-01-02 15:04:05",     // Space separator
	"2006-01-02",              // Date only (midnight)
	"2006/01/02",              // YYYY/MM/DD
}

// ParseTimestamp parses the timestamps the backends emit. Empty strings
// and unknown layouts are errors; numeric strings are unix seconds or
// milliseconds depending on magnitude.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e11 || n < -1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, format := range timestampFormats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", s)
}

// DateRange bounds records by calendar day. Both ends are inclusive and a
// zero end is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange builds a range from YYYY-MM-DD strings. Empty or invalid
// bounds stay open.
func ParseDateRange(from, to string) DateRange {
	var r DateRange
	if t, err := time.Parse("2006-01-02", from); err == nil {
		r.From = t
	}
	if t, err := time.Parse("2006-01-02", to); err == nil {
		r.To = t
	}
	return r
}

// Contains reports whether t falls on a day within the range.
func (r DateRange) Contains(t time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if !r.From.IsZero() && day.Before(dayOf(r.From)) {
		return false
	}
	if !r.To.IsZero() && day.After(dayOf(r.To)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// inRange parses a stamp and applies the range. Unparseable stamps are
// reported as not in range.
func inRange(stamp string, r DateRange) (time.Time, bool) {
	t, err := ParseTimestamp(stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, r.Contains(t)
}

// MonthlyCounts buckets timestamps into twelve months per year. Stamps
// outside the range, missing or unparseable are skipped.
func MonthlyCounts(stamps []string, r DateRange) map[int][12]int {
	out := make(map[int][12]int)
	for _, s := range stamps {
		t, ok := inRange(s, r)
		if !ok {
			continue
		}
		months := out[t.Year()]
		months[t.Month()-1]++
		out[t.Year()] = months
	}
	return out
}

// WeeklyCounts buckets timestamps by day of week. Index 0 is weekStart.
func WeeklyCounts(stamps []string, r DateRange, weekStart time.Weekday) [7]int {
	var out [7]int
	for _, s := range stamps {
		t, ok := inRange(s, r)
		if !ok {
			continue
		}
		out[(int(t.Weekday())-int(weekStart)+7)%7]++
	}
	return out
}

// Slice is one donut segment.
type Slice struct {
	Label   string
	Count   int
	Percent float64 // share of the total, rounded to one decimal
}

// DonutCounts counts labels. Blank labels count as "Unknown". Slices are
// sorted by count, largest first, then by label.
func DonutCounts(labels []string) []Slice {
	counts := make(map[string]int)
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			l = "Unknown"
		}
		counts[l]++
	}

	slices := make([]Slice, 0, len(counts))
	for label, n := range counts {
		slices = append(slices, Slice{
			Label:   label,
			Count:   n,
			Percent: math.Round(float64(n)*1000/float64(len(labels))) / 10,
		})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Count != slices[j].Count {
			return slices[i].Count > slices[j].Count
		}
		return slices[i].Label < slices[j].Label
	})
	return slices
}

// Bar is one bar of a bar chart. Height is a percentage of the tallest bar.
type Bar struct {
	Label  string
	Count  int
	Height int
}

// Bars pairs labels with counts and scales heights to the largest count.
func Bars(labels []string, counts []int) []Bar {
	top := 0
	for _, c := range counts {
		top = max(top, c)
	}
	bars := make([]Bar, 0, len(labels))
	for i, label := range labels {
		b := Bar{Label: label}
		if i < len(counts) {
			b.Count = counts[i]
		}
		if top > 0 {
			b.Height = b.Count * 100 / top
		}
		bars = append(bars, b)
	}
	return bars
}

// MonthLabels are the short month names, January first.
var MonthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// WeekdayLabels returns short day names starting at weekStart.
func WeekdayLabels(weekStart time.Weekday) []string {
	labels := make([]string, 7)
	for i := range labels {
		labels[i] = time.Weekday((int(weekStart) + i) % 7).String()[:3]
	}
	return labels
}

// YearSeries is the monthly bar chart of one year.
type YearSeries struct {
	Year  int
	Total int
	Bars  []Bar
}

// MonthlySeries converts MonthlyCounts into chart series, oldest year first.
func MonthlySeries(counts map[int][12]int) []YearSeries {
	years := make([]int, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	sort.Ints(years)

	series := make([]YearSeries, 0, len(years))
	for _, y := range years {
		months := counts[y]
		total := 0
		for _, n := range months {
			total += n
		}
		series = append(series, YearSeries{Year: y, Total: total, Bars: Bars(MonthLabels, months[:])})
	}
	return series
}
