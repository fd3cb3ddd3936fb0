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

package rendering

import (
	"embed"
	"fmt"
	"io"
	"io/fs"

	"github.com/google/safehtml/template"
)

//go:embed templates/*
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Page names a page template.
type Page string

// Pages.
const (
	PageLanding       Page = "landing"
	PageList          Page = "list"
	PageLogin         Page = "login"
	PageRegister      Page = "register"
	PageForgot        Page = "forgot"
	PageVehicleForm   Page = "vehicle_form"
	PageCameraForm    Page = "camera_form"
	PageZones         Page = "zones"
	PageAccident      Page = "accident"
	PageViolation     Page = "violation"
	PageConfirm       Page = "confirm"
	PageNotifications Page = "notifications"
	PageChat          Page = "chat"
	PageStats         Page = "stats"
	PageError         Page = "error"
)

var allPages = []Page{
	PageLanding, PageList, PageLogin, PageRegister, PageForgot,
	PageVehicleForm, PageCameraForm, PageZones, PageAccident, PageViolation,
	PageConfirm, PageNotifications, PageChat, PageStats, PageError,
}

// Renderer renders page view models to HTML. Every page shares the layout
// and the table partial.
type Renderer struct {
	pages map[Page]*template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	trustedFS := template.TrustedFSFromEmbed(templateFS)

	// Parse the layout and the shared partials
	base, err := template.New("layout.html").ParseFS(trustedFS, "templates/layout.html", "templates/table.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[Page]*template.Template, len(allPages))}
	for _, p := range allPages {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		// Each page file defines "content"
		if _, err := t.ParseFS(trustedFS, "templates/"+string(p)+".html"); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		r.pages[p] = t
	}
	return r, nil
}

// Render renders vm with the page template.
func (r *Renderer) Render(w io.Writer, page Page, vm any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return t.ExecuteTemplate(w, "layout", vm)
}

// Static returns the stylesheet and script files.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
