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

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Auth

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, ServiceAuth, http.MethodPost, "/api/users/login", req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &Error{Kind: KindServer, Status: http.StatusOK, Message: "login response carried no token"}
	}
	return &out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, ServiceAuth, http.MethodPost, "/api/users/register", req, nil)
}

// ForgotPassword asks the auth service to send a reset mail.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, ServiceAuth, http.MethodPost, "/api/users/forgotPassword", ForgotPasswordRequest{Email: email}, nil)
}

// SignIn returns the profile a token belongs to.
func (c *Client) SignIn(ctx context.Context, token string) (*User, error) {
	var out User
	if err := c.do(WithToken(ctx, token), ServiceAuth, http.MethodPost, "/api/users/signin", SignInRequest{Token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Users

// ListUsers returns every account.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	err := c.do(ctx, ServiceAuth, http.MethodGet, "/api/users", nil, &out)
	return out, err
}

// GetUser returns one account.
func (c *Client) GetUser(ctx context.Context, userID int64) (*User, error) {
	var out User
	if err := c.do(ctx, ServiceAuth, http.MethodGet, "/api/users/"+id(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser changes an account.
func (c *Client) UpdateUser(ctx context.Context, userID int64, update UserUpdate) (*User, error) {
	var out User
	if err := c.do(ctx, ServiceAuth, http.MethodPut, "/api/users/"+id(userID), update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	return c.do(ctx, ServiceAuth, http.MethodDelete, "/api/users/"+id(userID), nil, nil)
}

// Vehicles

// ListVehicles returns every vehicle.
func (c *Client) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	var out []Vehicle
	err := c.do(ctx, ServiceCore, http.MethodGet, "/api/vehicle", nil, &out)
	return out, err
}

// ListUserVehicles returns the vehicles registered to one user.
func (c *Client) ListUserVehicles(ctx context.Context, userID string) ([]Vehicle, error) {
	var out []Vehicle
	err := c.do(ctx, ServiceCore, http.MethodGet, "/api/vehicle/user/"+url.PathEscape(userID), nil, &out)
	return out, err
}

// GetVehicle returns one vehicle.
func (c *Client) GetVehicle(ctx context.Context, vehicleID int64) (*Vehicle, error) {
	var out Vehicle
	if err := c.do(ctx, ServiceCore, http.MethodGet, "/api/vehicle/"+id(vehicleID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateVehicle registers a vehicle.
func (c *Client) CreateVehicle(ctx context.Context, in VehicleInput) (*Vehicle, error) {
	var out Vehicle
	if err := c.do(ctx, ServiceCore, http.MethodPost, "/api/vehicle", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateVehicle changes a vehicle.
func (c *Client) UpdateVehicle(ctx context.Context, vehicleID int64, in VehicleInput) (*Vehicle, error) {
	var out Vehicle
	if err := c.do(ctx, ServiceCore, http.MethodPut, "/api/vehicle/"+id(vehicleID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteVehicle removes a vehicle.
func (c *Client) DeleteVehicle(ctx context.Context, vehicleID int64) error {
	return c.do(ctx, ServiceCore, http.MethodDelete, "/api/vehicle/"+id(vehicleID), nil, nil)
}

const vehicleTypesKey = "vehicle-types"

// VehicleTypes returns the vehicle type lookup, served from the cache
// while it is fresh.
func (c *Client) VehicleTypes(ctx context.Context) ([]VehicleType, error) {
	if types, ok := c.vehicleTypes.Get(vehicleTypesKey); ok {
		return types, nil
	}
	var out []VehicleType
	if err := c.do(ctx, ServiceCore, http.MethodGet, "/api/vehicle/types", nil, &out); err != nil {
		return nil, err
	}
	c.vehicleTypes.Add(vehicleTypesKey, out)
	return out, nil
}

// Accidents

// ListAccidents returns every accident.
func (c *Client) ListAccidents(ctx context.Context) ([]Accident, error) {
	var out []Accident
	err := c.do(ctx, ServiceCore, http.MethodGet, "/api/accidents/all", nil, &out)
	return out, err
}

// ListUserAccidents returns the accidents involving one user's vehicles.
func (c *Client) ListUserAccidents(ctx context.Context, userID string) ([]Accident, error) {
	var out []Accident
	err := c.do(ctx, ServiceCore, http.MethodGet, "/api/accident/user/"+url.PathEscape(userID), nil, &out)
	return out, err
}

// GetAccident returns one accident.
func (c *Client) GetAccident(ctx context.Context, accidentID int64) (*Accident, error) {
	var out Accident
	if err := c.do(ctx, ServiceCore, http.MethodGet, "/api/accident/"+id(accidentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAccident changes an accident.
func (c *Client) UpdateAccident(ctx context.Context, accidentID int64, update AccidentUpdate) (*Accident, error) {
	var out Accident
	if err := c.do(ctx, ServiceCore, http.MethodPut, "/api/accident/"+id(accidentID), update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveAccident marks an accident as reviewed.
func (c *Client) ApproveAccident(ctx context.Context, accidentID int64) error {
	return c.do(ctx, ServiceCore, http.MethodPut, fmt.Sprintf("/api/accident/%d/approve", accidentID), nil, nil)
}

// Violations

// ListViolations returns every violation.
func (c *Client) ListViolations(ctx context.Context) ([]Violation, error) {
	var out []Violation
	err := c.do(ctx, ServiceCore, http.MethodGet, "/api/violations", nil, &out)
	return out, err
}

// ListUserViolations returns the violations of one user's vehicles.
func (c *Client) ListUserViolations(ctx context.Context, userID string) ([]Violation, error) {
	var out []Violation
	err := c.do(ctx, ServiceCore, http.MethodGet, "/api/violations/user/"+url.PathEscape(userID), nil, &out)
	return out, err
}

// GetViolation returns one violation.
func (c *Client) GetViolation(ctx context.Context, violationID int64) (*Violation, error) {
	var out Violation
	if err := c.do(ctx, ServiceCore, http.MethodGet, "/api/violations/"+id(violationID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetViolationStatus moves a violation through its lifecycle.
func (c *Client) SetViolationStatus(ctx context.Context, violationID int64, status string) (*Violation, error) {
	var out Violation
	path := fmt.Sprintf("/api/violations/%d/status", violationID)
	if err := c.do(ctx, ServiceCore, http.MethodPatch, path, ViolationStatusUpdate{Status: status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Notifications

// ListNotifications returns the notifications of one user, newest first
// as the backend orders them.
func (c *Client) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	var out []Notification
	err := c.do(ctx, ServiceCore, http.MethodGet, "/api/notifications/"+url.PathEscape(userID), nil, &out)
	return out, err
}

// MarkNotificationRead flags a notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	return c.do(ctx, ServiceCore, http.MethodPut, "/api/notifications/read/"+id(notificationID), nil, nil)
}

// Cameras

// ListCameras returns every camera.
func (c *Client) ListCameras(ctx context.Context) ([]Camera, error) {
	var out []Camera
	err := c.do(ctx, ServiceVision, http.MethodGet, "/api/cameras", nil, &out)
	return out, err
}

// CreateCamera adds a camera.
func (c *Client) CreateCamera(ctx context.Context, cam Camera) (*Camera, error) {
	var out Camera
	if err := c.do(ctx, ServiceVision, http.MethodPost, "/api/cameras", cam, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCamera changes a camera.
func (c *Client) UpdateCamera(ctx context.Context, cam Camera) (*Camera, error) {
	var out Camera
	if err := c.do(ctx, ServiceVision, http.MethodPut, "/api/cameras/"+id(cam.ID), cam, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCamera removes a camera.
func (c *Client) DeleteCamera(ctx context.Context, cameraID int64) error {
	return c.do(ctx, ServiceVision, http.MethodDelete, "/api/cameras/"+id(cameraID), nil, nil)
}

// CameraZones returns the detection zones of a camera.
func (c *Client) CameraZones(ctx context.Context, cameraID int64) ([]Zone, error) {
	var out []Zone
	err := c.do(ctx, ServiceVision, http.MethodGet, fmt.Sprintf("/api/cameras/%d/zones", cameraID), nil, &out)
	return out, err
}

// SetCameraZones replaces the detection zones of a camera.
func (c *Client) SetCameraZones(ctx context.Context, cameraID int64, zones []Zone) error {
	return c.do(ctx, ServiceVision, http.MethodPut, fmt.Sprintf("/api/cameras/%d/zones", cameraID), zones, nil)
}

// Chat

// Chat sends a message to the assistant.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	var out ChatReply
	if err := c.do(ctx, ServiceVision, http.MethodPost, "/api/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
