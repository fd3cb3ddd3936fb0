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
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/trafficeye/console/core/api"
)

var (
	platePattern = regexp.MustCompile(`^[A-Z0-9]{1,3}-?[A-Z0-9]{1,4}-?[A-Z0-9]{1,4}$`)
	wordsPattern = regexp.MustCompile(`^[\p{L}][\p{L} -]{1,29}$`)
	modelPattern = regexp.MustCompile(`^[\p{L}0-9][\p{L}0-9 -]{1,29}$`)
)

// Plate length bounds, counting letters and digits only.
const (
	MinPlateChars = 4
	MaxPlateChars = 10
	MinYear       = 1950
)

// NormalizePlate upper-cases a plate and drops surrounding and inner spaces.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}

// ValidPlate reports whether a normalized plate is acceptable.
func ValidPlate(plate string) bool {
	if !platePattern.MatchString(plate) {
		return false
	}
	n := len(strings.ReplaceAll(plate, "-", ""))
	return n >= MinPlateChars && n <= MaxPlateChars
}

// VehicleForm is the create/edit vehicle form.
type VehicleForm struct {
	Plate   string
	Brand   string
	Model   string
	Color   string
	TypeID  string
	Year    string
	OwnerID string
}

// ParseVehicleForm reads a submitted vehicle form.
func ParseVehicleForm(v url.Values) VehicleForm {
	return VehicleForm{
		Plate:   NormalizePlate(v.Get("plate")),
		Brand:   value(v, "brand"),
		Model:   value(v, "model"),
		Color:   value(v, "color"),
		TypeID:  value(v, "type_id"),
		Year:    value(v, "year"),
		OwnerID: value(v, "owner_id"),
	}
}

// VehicleFormFrom fills the form from an existing vehicle.
func VehicleFormFrom(v *api.Vehicle) VehicleForm {
	f := VehicleForm{
		Plate: v.Plate,
		Brand: v.Brand,
		Model: v.Model,
		Color: v.Color,
	}
	if v.Type != nil {
		f.TypeID = strconv.FormatInt(v.Type.ID, 10)
	}
	if v.Year > 0 {
		f.Year = strconv.Itoa(v.Year)
	}
	if v.Owner != nil {
		f.OwnerID = strconv.FormatInt(v.Owner.ID, 10)
	}
	return f
}

// Validate checks the form. now bounds the model year to next year.
func (f VehicleForm) Validate(now time.Time) Errors {
	errs := Errors{}

	if required(errs, "plate", f.Plate, "Plate") && !ValidPlate(f.Plate) {
		errs.Add("plate", "Plate must look like AB-123-CD with 4 to 10 letters or digits")
	}
	if required(errs, "brand", f.Brand, "Brand") && !wordsPattern.MatchString(f.Brand) {
		errs.Add("brand", "Brand must be 2 to 30 letters, spaces or hyphens")
	}
	if required(errs, "model", f.Model, "Model") && !modelPattern.MatchString(f.Model) {
		errs.Add("model", "Model must be 2 to 30 letters, digits, spaces or hyphens")
	}
	if required(errs, "color", f.Color, "Color") && !wordsPattern.MatchString(f.Color) {
		errs.Add("color", "Color must be 2 to 30 letters, spaces or hyphens")
	}
	if required(errs, "type_id", f.TypeID, "Vehicle type") {
		if id, err := strconv.ParseInt(f.TypeID, 10, 64); err != nil || id <= 0 {
			errs.Add("type_id", "Choose a vehicle type")
		}
	}
	if f.Year != "" {
		year, err := strconv.Atoi(f.Year)
		if err != nil || year < MinYear || year > now.Year()+1 {
			errs.Add("year", "Year must be between "+strconv.Itoa(MinYear)+" and "+strconv.Itoa(now.Year()+1))
		}
	}
	if f.OwnerID != "" {
		if id, err := strconv.ParseInt(f.OwnerID, 10, 64); err != nil || id <= 0 {
			errs.Add("owner_id", "Owner must be a user id")
		}
	}
	return errs
}

// Input converts a validated form into the API body.
func (f VehicleForm) Input() api.VehicleInput {
	typeID, _ := strconv.ParseInt(f.TypeID, 10, 64)
	ownerID, _ := strconv.ParseInt(f.OwnerID, 10, 64)
	year, _ := strconv.Atoi(f.Year)
	return api.VehicleInput{
		Plate:   f.Plate,
		Brand:   f.Brand,
		Model:   f.Model,
		Color:   f.Color,
		Year:    year,
		TypeID:  typeID,
		OwnerID: ownerID,
	}
}

// Accident values accepted by the review form.
var (
	AccidentSeverities = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}
	AccidentStatuses   = []string{"PENDING", "CONFIRMED", "RESOLVED", "REJECTED"}
)

// AccidentForm is the accident review form.
type AccidentForm struct {
	Severity    string
	Status      string
	Description string
}

// ParseAccidentForm reads a submitted accident review form.
func ParseAccidentForm(v url.Values) AccidentForm {
	return AccidentForm{
		Severity:    strings.ToUpper(value(v, "severity")),
		Status:      strings.ToUpper(value(v, "status")),
		Description: value(v, "description"),
	}
}

// Validate checks the accident form.
func (f AccidentForm) Validate() Errors {
	errs := Errors{}
	if required(errs, "severity", f.Severity, "Severity") && !contains(AccidentSeverities, f.Severity) {
		errs.Add("severity", "Unknown severity")
	}
	if required(errs, "status", f.Status, "Status") && !contains(AccidentStatuses, f.Status) {
		errs.Add("status", "Unknown status")
	}
	if len(f.Description) > 2000 {
		errs.Add("description", "Description is limited to 2000 characters")
	}
	return errs
}

// Update converts a validated form into the API body.
func (f AccidentForm) Update() api.AccidentUpdate {
	return api.AccidentUpdate{Severity: f.Severity, Status: f.Status, Description: f.Description}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
