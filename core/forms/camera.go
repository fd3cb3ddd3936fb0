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

package forms

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/trafficeye/console/core/api"
)

// MinZonePoints is the smallest polygon accepted for a zone.
const MinZonePoints = 3

// ZoneTypes are the detection zone kinds the vision service understands.
var ZoneTypes = []string{"detection", "speed", "parking", "red_light"}

// CameraForm is the create/edit camera form.
type CameraForm struct {
	ID        int64
	Name      string
	StreamURL string
	Latitude  string
	Longitude string
	Active    bool
}

// ParseCameraForm reads a submitted camera form.
func ParseCameraForm(v url.Values) CameraForm {
	id, _ := strconv.ParseInt(value(v, "id"), 10, 64)
	return CameraForm{
		ID:        id,
		Name:      value(v, "name"),
		StreamURL: value(v, "stream_url"),
		Latitude:  value(v, "latitude"),
		Longitude: value(v, "longitude"),
		Active:    v.Get("active") != "",
	}
}

// CameraFormFrom fills the form from an existing camera.
func CameraFormFrom(c *api.Camera) CameraForm {
	return CameraForm{
		ID:        c.ID,
		Name:      c.Name,
		StreamURL: c.StreamURL,
		Latitude:  strconv.FormatFloat(c.Latitude, 'f', -1, 64),
		Longitude: strconv.FormatFloat(c.Longitude, 'f', -1, 64),
		Active:    c.Active,
	}
}

// Validate checks the camera form.
func (f CameraForm) Validate() Errors {
	errs := Errors{}
	if required(errs, "name", f.Name, "Name") && len(f.Name) > 60 {
		errs.Add("name", "Name is limited to 60 characters")
	}
	if required(errs, "stream_url", f.StreamURL, "Stream URL") {
		u, err := url.Parse(f.StreamURL)
		if err != nil || u.Host == "" || !contains([]string{"rtsp", "rtsps", "http", "https"}, strings.ToLower(u.Scheme)) {
			errs.Add("stream_url", "Stream URL must be an rtsp:// or http(s):// address")
		}
	}
	checkCoordinate(errs, "latitude", f.Latitude, 90)
	checkCoordinate(errs, "longitude", f.Longitude, 180)
	return errs
}

func checkCoordinate(errs Errors, field, raw string, limit float64) {
	label := strings.ToUpper(field[:1]) + field[1:]
	if !required(errs, field, raw, label) {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < -limit || v > limit {
		errs.Add(field, fmt.Sprintf("%s must be a number between %g and %g", label, -limit, limit))
	}
}

// Camera converts a validated form into the API body.
func (f CameraForm) Camera() api.Camera {
	lat, _ := strconv.ParseFloat(f.Latitude, 64)
	lng, _ := strconv.ParseFloat(f.Longitude, 64)
	return api.Camera{
		ID:        f.ID,
		Name:      f.Name,
		StreamURL: f.StreamURL,
		Latitude:  lat,
		Longitude: lng,
		Active:    f.Active,
	}
}

// ParsePolygon reads "x,y;x,y;..." with coordinates normalized to the
// frame, each in [0, 1].
func ParsePolygon(s string) ([]api.Point, error) {
	var points []api.Point
	for i, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xy := strings.Split(pair, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("point %d: expected x,y", i+1)
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("point %d: coordinates must be numbers", i+1)
		}
		if math.IsNaN(x) || math.IsNaN(y) || x < 0 || x > 1 || y < 0 || y > 1 {
			return nil, fmt.Errorf("point %d: coordinates must be between 0 and 1", i+1)
		}
		points = append(points, api.Point{X: x, Y: y})
	}
	if len(points) < MinZonePoints {
		return nil, fmt.Errorf("a zone needs at least %d points", MinZonePoints)
	}
	return points, nil
}

// FormatPolygon is the inverse of ParsePolygon.
func FormatPolygon(points []api.Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = strconv.FormatFloat(p.X, 'f', -1, 64) + "," + strconv.FormatFloat(p.Y, 'f', -1, 64)
	}
	return strings.Join(parts, ";")
}

// ZoneForm adds one zone to a camera.
type ZoneForm struct {
	Name   string
	Type   string
	Points string
}

// ParseZoneForm reads a submitted zone form.
func ParseZoneForm(v url.Values) ZoneForm {
	return ZoneForm{
		Name:   value(v, "name"),
		Type:   strings.ToLower(value(v, "type")),
		Points: value(v, "points"),
	}
}

// Validate checks the zone form and returns the parsed zone when valid.
func (f ZoneForm) Validate() (api.Zone, Errors) {
	errs := Errors{}
	required(errs, "name", f.Name, "Name")
	if required(errs, "type", f.Type, "Type") && !contains(ZoneTypes, f.Type) {
		errs.Add("type", "Unknown zone type")
	}
	var points []api.Point
	if required(errs, "points", f.Points, "Points") {
		p, err := ParsePolygon(f.Points)
		if err != nil {
			errs.Add("points", err.Error())
		}
		points = p
	}
	return api.Zone{Name: f.Name, Type: f.Type, Points: points}, errs
}
