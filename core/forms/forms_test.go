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
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/trafficeye/console/core/api"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestValidPlate(t *testing.T) {
	tests := []struct {
		plate string
		want  bool
	}{
		{"AB-123-CD", true},
		{"AB123CD", true},
		{"1-ABC-234", true},
		{"MC12", true},
		{"ABC", false},           // too short
		{"ABC-1234-5678", false}, // 11 significant characters
		{"AB_123", false},        // underscore
		{"ab-123-cd", false},     // not normalized
		{"AB--123", false},       // double dash
		{"-AB-123", false},       // leading dash
	}
	for _, tt := range tests {
		if got := ValidPlate(tt.plate); got != tt.want {
			t.Errorf("ValidPlate(%q) = %v, want %v", tt.plate, got, tt.want)
		}
	}
	if got := NormalizePlate("  ab 123 cd "); got != "AB123CD" {
		t.Errorf("NormalizePlate = %q", got)
	}
}

func TestVehicleForm(t *testing.T) {
	valid := url.Values{
		"plate":   {"ab-123-cd"},
		"brand":   {"Renault"},
		"model":   {"Clio 4"},
		"color":   {"Dark blue"},
		"type_id": {"2"},
		"year":    {"2019"},
	}

	f := ParseVehicleForm(valid)
	if errs := f.Validate(now); errs.Any() {
		t.Fatalf("unexpected errors %v", errs)
	}
	want := api.VehicleInput{Plate: "AB-123-CD", Brand: "Renault", Model: "Clio 4", Color: "Dark blue", Year: 2019, TypeID: 2}
	if diff := cmp.Diff(want, f.Input()); diff != "" {
		t.Errorf("Input mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name  string
		field string
		value string
	}{
		{"missing plate", "plate", ""},
		{"bad plate", "plate", "A!"},
		{"brand with digits", "brand", "R3nault"},
		{"brand too short", "brand", "R"},
		{"color too long", "color", "abcdefghijabcdefghijabcdefghijx"},
		{"missing type", "type_id", ""},
		{"type not a number", "type_id", "car"},
		{"year too old", "year", "1949"},
		{"year too new", "year", "2026"},
		{"owner not a number", "owner_id", "bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := url.Values{}
			for k, vs := range valid {
				v[k] = vs
			}
			v.Set(tt.field, tt.value)
			errs := ParseVehicleForm(v).Validate(now)
			if errs.Get(tt.field) == "" {
				t.Errorf("expected an error on %s, got %v", tt.field, errs)
			}
			if len(errs) != 1 {
				t.Errorf("expected exactly one error, got %v", errs)
			}
		})
	}

	// Next year is still accepted
	v := url.Values{}
	for k, vs := range valid {
		v[k] = vs
	}
	v.Set("year", "2025")
	if errs := ParseVehicleForm(v).Validate(now); errs.Any() {
		t.Errorf("next model year rejected: %v", errs)
	}
}

func TestAuthForms(t *testing.T) {
	login := ParseLoginForm(url.Values{"email": {"not-an-email"}})
	errs := login.Validate()
	if errs.Get("email") == "" || errs.Get("password") == "" {
		t.Errorf("login errors = %v", errs)
	}

	reg := ParseRegisterForm(url.Values{
		"username": {"al"},
		"email":    {"al@example.com"},
		"password": {"short"},
		"confirm":  {"shorter"},
	})
	errs = reg.Validate()
	for _, field := range []string{"username", "password", "confirm"} {
		if errs.Get(field) == "" {
			t.Errorf("expected error on %s: %v", field, errs)
		}
	}
	if errs.Get("email") != "" {
		t.Errorf("email is fine: %v", errs)
	}

	reg = ParseRegisterForm(url.Values{
		"username": {"alice_01"},
		"email":    {"alice@example.com"},
		"password": {"correct horse"},
		"confirm":  {"correct horse"},
	})
	if errs := reg.Validate(); errs.Any() {
		t.Errorf("unexpected errors %v", errs)
	}

	if errs := ParseForgotPasswordForm(url.Values{"email": {" bob@example.com "}}).Validate(); errs.Any() {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestParsePolygon(t *testing.T) {
	points, err := ParsePolygon("0,0; 1,0 ;0.5,0.75;")
	if err != nil {
		t.Fatal(err)
	}
	want := []api.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0.5, Y: 0.75}}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	if got := FormatPolygon(points); got != "0,0;1,0;0.5,0.75" {
		t.Errorf("FormatPolygon = %q", got)
	}

	for _, bad := range []string{"", "0,0;1,1", "0,0;1,1;2,0", "0,0;1;0.5,0.5", "a,b;0,0;1,1", "NaN,0.5;0.2,NaN;0.3,0.3", "0,0;nan,1;1,1"} {
		if _, err := ParsePolygon(bad); err == nil {
			t.Errorf("ParsePolygon(%q) expected error", bad)
		}
	}
}

func TestCameraAndZoneForms(t *testing.T) {
	cam := ParseCameraForm(url.Values{
		"name":       {"Main St / 5th"},
		"stream_url": {"rtsp://10.0.0.5:554/stream1"},
		"latitude":   {"36.8"},
		"longitude":  {"10.18"},
		"active":     {"on"},
	})
	if errs := cam.Validate(); errs.Any() {
		t.Fatalf("unexpected errors %v", errs)
	}
	if c := cam.Camera(); !c.Active || c.Latitude != 36.8 {
		t.Errorf("camera = %+v", c)
	}

	bad := ParseCameraForm(url.Values{"name": {"x"}, "stream_url": {"ftp://host/x"}, "latitude": {"91"}, "longitude": {"abc"}})
	errs := bad.Validate()
	for _, field := range []string{"stream_url", "latitude", "longitude"} {
		if errs.Get(field) == "" {
			t.Errorf("expected error on %s: %v", field, errs)
		}
	}

	for _, raw := range []string{"NaN", "nan", "-NaN"} {
		errs := ParseCameraForm(url.Values{"name": {"x"}, "stream_url": {"rtsp://host/x"}, "latitude": {raw}, "longitude": {raw}}).Validate()
		if errs.Get("latitude") == "" || errs.Get("longitude") == "" {
			t.Errorf("%s coordinates accepted: %v", raw, errs)
		}
	}

	zone, errs := ParseZoneForm(url.Values{"name": {"Lane 1"}, "type": {"Speed"}, "points": {"0,0;1,0;1,1;0,1"}}).Validate()
	if errs.Any() || len(zone.Points) != 4 || zone.Type != "speed" {
		t.Errorf("zone = %+v, errs = %v", zone, errs)
	}
	_, errs = ParseZoneForm(url.Values{"name": {"Lane 2"}, "type": {"speed"}, "points": {"0,0;1,0"}}).Validate()
	if errs.Get("points") != "a zone needs at least 3 points" {
		t.Errorf("points error = %q", errs.Get("points"))
	}
}

func TestAccidentForm(t *testing.T) {
	f := ParseAccidentForm(url.Values{"severity": {"high"}, "status": {"confirmed"}})
	if errs := f.Validate(); errs.Any() {
		t.Fatalf("unexpected errors %v", errs)
	}
	if u := f.Update(); u.Severity != "HIGH" || u.Status != "CONFIRMED" {
		t.Errorf("update = %+v", u)
	}
	if errs := ParseAccidentForm(url.Values{"severity": {"apocalyptic"}}).Validate(); errs.Get("severity") == "" || errs.Get("status") == "" {
		t.Errorf("errors = %v", errs)
	}
}

func TestErrorsKeepFirstMessage(t *testing.T) {
	errs := Errors{}
	errs.Add("plate", "first")
	errs.Add("plate", "second")
	errs.Add(FormLevel, "Plate already registered")
	if errs.Get("plate") != "first" || errs.Form() != "Plate already registered" {
		t.Errorf("errors = %v", errs)
	}
}
