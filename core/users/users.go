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

package users

import (
	"context"
	"strings"
)

// Roles known to the backends.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Identity is the signed-in user, derived from the backend token.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     string
	Token    string
}

// IsAdmin reports whether the identity carries the admin role.
func (id *Identity) IsAdmin() bool {
	return HasRole(id, RoleAdmin)
}

// HasRole checks if a user has the given role. Roles compare case-insensitively,
// with or without a "ROLE_" prefix.
func HasRole(id *Identity, role string) bool {
	if id == nil {
		return false
	}
	return normalizeRole(id.Role) == normalizeRole(role)
}

// HasAnyRole checks if a user has any of the given roles.
func HasAnyRole(id *Identity, roles []string) bool {
	if id == nil {
		return false
	}
	for _, r := range roles {
		if HasRole(id, r) {
			return true
		}
	}
	return false
}

func normalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	return strings.TrimPrefix(role, "ROLE_")
}

type contextKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity attached to ctx, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(contextKey{}).(*Identity)
	return id
}
