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

package demo

import (
	"fmt"
	"time"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/users"
)

// Seed sizes. Records are spread over the two years before the seed time.
const (
	seedAccidents  = 60
	seedViolations = 140
)

// Demo accounts. The passwords are printed by the serve command in demo mode.
var (
	AdminEmail    = "admin@trafficeye.local"
	AdminPassword = "admin1234"
	UserEmail     = "alice@trafficeye.local"
	UserPassword  = "alice1234"
)

type account struct {
	api.User
	password string
}

type vehicle struct {
	ID      int64
	Plate   string
	Brand   string
	Model   string
	Color   string
	Year    int
	TypeID  int64
	OwnerID int64
}

type accident struct {
	api.Accident
	vehicleID int64
}

type violation struct {
	api.Violation
	vehicleID int64
}

var (
	seedTypes = []api.VehicleType{
		{ID: 1, Name: "car"},
		{ID: 2, Name: "truck"},
		{ID: 3, Name: "motorcycle"},
		{ID: 4, Name: "bus"},
		{ID: 5, Name: "van"},
	}

	seedLocations = []string{
		"A1 km 12 northbound",
		"Main St & 5th Ave",
		"Harbor Bridge",
		"Ring Road exit 4",
		"Central Station roundabout",
		"Airport tunnel",
	}

	seedSeverities   = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL", "LOW", "MEDIUM"}
	seedAccStatuses  = []string{"PENDING", "CONFIRMED", "RESOLVED", "REJECTED"}
	seedViolTypes    = []string{"SPEEDING", "RED_LIGHT", "ILLEGAL_PARKING", "NO_SEATBELT", "SPEEDING"}
	seedViolStatuses = []string{api.ViolationPending, api.ViolationPaid, api.ViolationContested, api.ViolationPaid}
	seedFines        = map[string]float64{"SPEEDING": 135, "RED_LIGHT": 250, "ILLEGAL_PARKING": 35, "NO_SEATBELT": 90}
)

// seed fills an empty backend. now anchors every generated timestamp.
func (b *Backend) seed(now time.Time) {
	stamp := func(t time.Time) string { return t.UTC().Format(time.RFC3339) }

	b.types = append([]api.VehicleType(nil), seedTypes...)

	b.accounts = []*account{
		{User: api.User{ID: 1, Username: "admin", Email: AdminEmail, Role: users.RoleAdmin, Status: api.StatusActive}, password: AdminPassword},
		{User: api.User{ID: 2, Username: "alice", Email: UserEmail, Role: users.RoleUser, Status: api.StatusActive}, password: UserPassword},
		{User: api.User{ID: 3, Username: "bob", Email: "bob@trafficeye.local", Role: users.RoleUser, Status: api.StatusActive}, password: "bob12345"},
		{User: api.User{ID: 4, Username: "carol", Email: "carol@trafficeye.local", Role: users.RoleUser, Status: api.StatusInactive}, password: "carol123"},
	}
	for i, a := range b.accounts {
		a.CreatedAt = stamp(now.AddDate(0, -24+i, 0))
	}

	brands := []struct{ brand, model string }{
		{"Toyota", "Corolla"}, {"Volvo", "FH16"}, {"Honda", "CB500"}, {"Mercedes", "Citaro"},
		{"Ford", "Transit"}, {"Renault", "Clio"}, {"Peugeot", "208"}, {"Scania", "R450"},
	}
	colors := []string{"White", "Black", "Red", "Silver", "Blue"}
	for i := 0; i < 12; i++ {
		bm := brands[i%len(brands)]
		b.vehicles = append(b.vehicles, &vehicle{
			ID:      int64(i + 1),
			Plate:   fmt.Sprintf("TE-%03d-%c%c", 100+i*7, 'A'+rune(i%26), 'K'+rune(i%10)),
			Brand:   bm.brand,
			Model:   bm.model,
			Color:   colors[i%len(colors)],
			Year:    2008 + i,
			TypeID:  seedTypes[i%len(seedTypes)].ID,
			OwnerID: int64(2 + i%3),
		})
	}

	for i := 0; i < seedAccidents; i++ {
		at := now.Add(-time.Duration(i*293+7) * time.Hour * 4)
		a := &accident{
			Accident: api.Accident{
				ID:          int64(i + 1),
				Location:    seedLocations[i%len(seedLocations)],
				Latitude:    48.85 + float64(i%7)/100,
				Longitude:   2.35 + float64(i%5)/100,
				Severity:    seedSeverities[i%len(seedSeverities)],
				Status:      seedAccStatuses[i%len(seedAccStatuses)],
				Description: fmt.Sprintf("Collision detected by camera %d.", 1+i%3),
				Approved:    i%3 == 0,
				ImageURL:    fmt.Sprintf("/frames/accident-%d.jpg", i+1),
				CameraID:    int64(1 + i%3),
				CreatedAt:   stamp(at),
			},
			vehicleID: int64(1 + i%len(b.vehicles)),
		}
		b.accidents = append(b.accidents, a)
	}

	for i := 0; i < seedViolations; i++ {
		at := now.Add(-time.Duration(i*127+3) * time.Hour)
		kind := seedViolTypes[i%len(seedViolTypes)]
		v := &violation{
			Violation: api.Violation{
				ID:        int64(i + 1),
				Type:      kind,
				Fine:      seedFines[kind],
				Status:    seedViolStatuses[i%len(seedViolStatuses)],
				Location:  seedLocations[(i+2)%len(seedLocations)],
				ImageURL:  fmt.Sprintf("/frames/violation-%d.jpg", i+1),
				CreatedAt: stamp(at),
			},
			vehicleID: int64(1 + (i*5)%len(b.vehicles)),
		}
		if kind == "SPEEDING" {
			v.SpeedLimit = 50 + float64(10*(i%4))
			v.Speed = v.SpeedLimit + 8 + float64(i%23)
		}
		b.violations = append(b.violations, v)
	}

	b.cameras = []*api.Camera{
		{ID: 1, Name: "Harbor Bridge east", StreamURL: "rtsp://cams.trafficeye.local/harbor-east", Latitude: 48.8566, Longitude: 2.3522, Active: true,
			Zones: []api.Zone{{ID: 1, Name: "Lane 1", Type: "speed", Points: []api.Point{{X: 0.1, Y: 0.6}, {X: 0.45, Y: 0.6}, {X: 0.4, Y: 0.95}, {X: 0.05, Y: 0.95}}}}},
		{ID: 2, Name: "Main St crossing", StreamURL: "rtsp://cams.trafficeye.local/main-5th", Latitude: 48.8601, Longitude: 2.3470, Active: true,
			Zones: []api.Zone{{ID: 2, Name: "Stop line", Type: "red_light", Points: []api.Point{{X: 0.2, Y: 0.7}, {X: 0.8, Y: 0.7}, {X: 0.8, Y: 0.78}, {X: 0.2, Y: 0.78}}}}},
		{ID: 3, Name: "Central Station", StreamURL: "http://cams.trafficeye.local/central.mjpg", Latitude: 48.8443, Longitude: 2.3744, Active: false},
	}

	titles := []string{"New violation", "Accident reported", "Fine paid", "Camera offline"}
	for i := 0; i < 9; i++ {
		b.notifications = append(b.notifications, &api.Notification{
			ID:        int64(i + 1),
			UserID:    int64(1 + i%2),
			Title:     titles[i%len(titles)],
			Message:   fmt.Sprintf("Event %d needs your attention.", 100+i),
			Read:      i%3 == 2,
			CreatedAt: stamp(now.Add(-time.Duration(i*9) * time.Hour)),
		})
	}

	b.nextID = 1000
}
