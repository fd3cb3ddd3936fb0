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

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"
)

// ErrTokenExpired is returned for tokens whose exp claim has passed.
var ErrTokenExpired = errors.New("token expired")

// Claims are the fields the console reads from a backend token.
type Claims struct {
	UserID    string
	Username  string
	Email     string
	Role      string
	ExpiresAt time.Time // zero when the token carries no exp
}

type rawClaims struct {
	Subject  string          `json:"sub"`
	UserID   json.RawMessage `json:"userId"`
	ID       json.RawMessage `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Role     string          `json:"role"`
	Roles    []string        `json:"roles"`
	Exp      json.Number     `json:"exp"`
}

// ParseToken reads the claims of a compact JWS. With a secret the HS256
// signature is verified; without one the payload is read as is.
func ParseToken(token, secret string, now time.Time) (Claims, error) {
	token = strings.TrimSpace(token)
	var payload []byte
	if secret != "" {
		p, err := jws.Verify([]byte(token), jws.WithKey(jwa.HS256(), []byte(secret)))
		if err != nil {
			return Claims{}, fmt.Errorf("verifying token: %w", err)
		}
		payload = p
	} else {
		msg, err := jws.Parse([]byte(token))
		if err != nil {
			return Claims{}, fmt.Errorf("parsing token: %w", err)
		}
		payload = msg.Payload()
	}

	var raw rawClaims
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Claims{}, fmt.Errorf("decoding token claims: %w", err)
	}

	c := Claims{
		UserID:   firstNonEmpty(idString(raw.UserID), idString(raw.ID), raw.Subject),
		Username: raw.Username,
		Email:    raw.Email,
		Role:     raw.Role,
	}
	if c.Role == "" && len(raw.Roles) > 0 {
		c.Role = raw.Roles[0]
	}
	if c.Email == "" && strings.Contains(raw.Subject, "@") {
		c.Email = raw.Subject
	}
	if raw.Exp != "" {
		exp, err := raw.Exp.Float64()
		if err != nil {
			return Claims{}, fmt.Errorf("decoding exp claim: %w", err)
		}
		c.ExpiresAt = time.Unix(int64(exp), 0)
		if !now.Before(c.ExpiresAt) {
			return c, ErrTokenExpired
		}
	}
	if c.UserID == "" {
		return c, errors.New("token carries no user id")
	}
	return c, nil
}

// SignToken issues an HS256 token for claims. Used by the demo backend.
func SignToken(c Claims, secret string) (string, error) {
	body := map[string]any{
		"sub":      c.UserID,
		"userId":   c.UserID,
		"username": c.Username,
		"email":    c.Email,
		"role":     c.Role,
	}
	if !c.ExpiresAt.IsZero() {
		body["exp"] = c.ExpiresAt.Unix()
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	signed, err := jws.Sign(payload, jws.WithKey(jwa.HS256(), []byte(secret)))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return string(signed), nil
}

// idString accepts ids encoded as JSON numbers or strings.
func idString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
