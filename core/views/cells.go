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
	"strings"
	"time"

	"github.com/google/safehtml"
	"github.com/google/safehtml/template"

	"github.com/trafficeye/console/core/charts"
	"github.com/trafficeye/console/core/tables"
)

var (
	badgeTemplate = template.Must(template.New("badge").Parse(`<span class="badge badge-{{.Tone}}">{{.Text}}</span>`))
	linkTemplate  = template.Must(template.New("link").Parse(`<a href="{{.Href}}">{{.Text}}</a>`))
)

// Badge renders text as a colored pill. Tone selects the css modifier.
func Badge(text, tone string) safehtml.HTML {
	if tone == "" {
		tone = "neutral"
	}
	h, err := badgeTemplate.ExecuteToHTML(struct{ Text, Tone string }{text, tone})
	if err != nil {
		return safehtml.HTMLEscaped(text)
	}
	return h
}

// Link renders an anchor.
func Link(text string, href safehtml.URL) safehtml.HTML {
	h, err := linkTemplate.ExecuteToHTML(struct {
		Text string
		Href safehtml.URL
	}{text, href})
	if err != nil {
		return safehtml.HTMLEscaped(text)
	}
	return h
}

// BadgeRenderer returns a Column.Render that shows the cell value as a
// badge, choosing the tone by lower-cased value.
func BadgeRenderer(tones map[string]string) func(value any, record any, index int) safehtml.HTML {
	return func(value any, _ any, _ int) safehtml.HTML {
		text := tables.CellText(value)
		if text == "" {
			return safehtml.HTML{}
		}
		return Badge(text, tones[strings.ToLower(text)])
	}
}

// TimeRenderer formats timestamps, parsing strings leniently. Values that
// cannot be parsed are shown as they are.
func TimeRenderer(layout string) func(value any, record any, index int) safehtml.HTML {
	return func(value any, _ any, _ int) safehtml.HTML {
		switch v := value.(type) {
		case time.Time:
			if v.IsZero() {
				return safehtml.HTML{}
			}
			return safehtml.HTMLEscaped(v.Format(layout))
		case string:
			if t, err := charts.ParseTimestamp(v); err == nil {
				return safehtml.HTMLEscaped(t.Format(layout))
			}
			return safehtml.HTMLEscaped(v)
		default:
			return safehtml.HTMLEscaped(tables.CellText(value))
		}
	}
}

// AmountRenderer formats a number with two decimals and grouping.
func AmountRenderer(suffix string) func(value any, record any, index int) safehtml.HTML {
	return func(value any, _ any, _ int) safehtml.HTML {
		switch v := value.(type) {
		case float64:
			return safehtml.HTMLEscaped(printer.Sprintf("%.2f", v) + suffix)
		case int:
			return safehtml.HTMLEscaped(printer.Sprintf("%d", v) + suffix)
		default:
			return safehtml.HTMLEscaped(tables.CellText(value))
		}
	}
}
