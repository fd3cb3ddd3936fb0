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

// User is an account on the auth service.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// User statuses.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// UserUpdate is the body of PUT /api/users/{id}. Empty fields are left unchanged.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Status   string `json:"status,omitempty"`
}

// LoginRequest is the body of POST /api/users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// RegisterRequest is the body of POST /api/users/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the body of POST /api/users/forgotPassword.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// SignInRequest is the body of POST /api/users/signin, which exchanges a
// token for the profile it belongs to.
type SignInRequest struct {
	Token string `json:"token"`
}

// VehicleType is a lookup entry such as "car" or "truck".
type VehicleType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Owner is the user a vehicle is registered to.
type Owner struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Vehicle is a registered vehicle.
type Vehicle struct {
	ID    int64        `json:"id"`
	Plate string       `json:"plate"`
	Brand string       `json:"brand"`
	Model string       `json:"model"`
	Color string       `json:"color"`
	Year  int          `json:"year,omitempty"`
	Type  *VehicleType `json:"type,omitempty"`
	Owner *Owner       `json:"owner,omitempty"`
}

// VehicleInput is the body of vehicle create and update calls.
type VehicleInput struct {
	Plate   string `json:"plate"`
	Brand   string `json:"brand"`
	Model   string `json:"model"`
	Color   string `json:"color"`
	Year    int    `json:"year,omitempty"`
	TypeID  int64  `json:"typeId"`
	OwnerID int64  `json:"ownerId,omitempty"`
}

// Accident is a detected or reported accident.
type Accident struct {
	ID          int64    `json:"id"`
	Location    string   `json:"location"`
	Latitude    float64  `json:"latitude,omitempty"`
	Longitude   float64  `json:"longitude,omitempty"`
	Severity    string   `json:"severity"`
	Status      string   `json:"status"`
	Description string   `json:"description,omitempty"`
	Approved    bool     `json:"approved"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	CameraID    int64    `json:"cameraId,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	Vehicle     *Vehicle `json:"vehicle,omitempty"`
}

// AccidentUpdate is the body of PUT /api/accident/{id}.
type AccidentUpdate struct {
	Severity    string `json:"severity,omitempty"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
}

// Violation is a traffic violation with its fine.
type Violation struct {
	ID         int64    `json:"id"`
	Type       string   `json:"type"`
	Plate      string   `json:"plate"`
	Fine       float64  `json:"fine"`
	Status     string   `json:"status"`
	Location   string   `json:"location,omitempty"`
	Speed      float64  `json:"speed,omitempty"`
	SpeedLimit float64  `json:"speedLimit,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	CreatedAt  string   `json:"createdAt"`
	Vehicle    *Vehicle `json:"vehicle,omitempty"`
}

// Violation statuses.
const (
	ViolationPending   = "PENDING"
	ViolationPaid      = "PAID"
	ViolationContested = "CONTESTED"
)

// ViolationStatusUpdate is the body of PATCH /api/violations/{id}/status.
type ViolationStatusUpdate struct {
	Status string `json:"status"`
}

// Notification is a message for one user.
type Notification struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

// Point is a zone vertex in normalized frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zone is a detection polygon on a camera frame.
type Zone struct {
	ID     int64   `json:"id,omitempty"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Points []Point `json:"points"`
}

// Camera is a video source on the vision service.
type Camera struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	StreamURL string  `json:"streamUrl"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Active    bool    `json:"active"`
	Zones     []Zone  `json:"zones,omitempty"`
}

// ChatTurn is one exchange kept in the transcript.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string     `json:"message"`
	UserID  string     `json:"userId,omitempty"`
	History []ChatTurn `json:"history,omitempty"`
}

// ChatReply is the chat backend's answer.
type ChatReply struct {
	Reply string `json:"reply"`
}
