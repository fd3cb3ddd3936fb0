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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Kind classifies backend failures.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindServer       Kind = "server"
)

// Error is the single error type returned for failed backend calls.
type Error struct {
	Kind    Kind
	Status  int // 0 for network failures
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s error (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// maxErrorBody bounds how much of an error body is read.
const maxErrorBody = 64 << 10

// ParseAPIError converts a non-2xx response into an *Error. The message is
// taken from the first non-empty "error", "detail" or "message" field of a
// JSON body, then from a short plain-text body, then from the status text.
// The body is consumed but not closed.
func ParseAPIError(resp *http.Response) *Error {
	e := &Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e.Message = messageFromBody(body)
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return e
}

func messageFromBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		// Plain text bodies are used when short and not HTML
		if len(text) <= 200 && !strings.HasPrefix(text, "<") && !strings.HasPrefix(text, "{") {
			return text
		}
		return ""
	}
	for _, key := range []string{"error", "detail", "message"} {
		if msg := stringField(fields[key]); msg != "" {
			return msg
		}
	}
	return ""
}

func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		// {"error": {"message": "..."}}
		return stringField(t["message"])
	case []any:
		// Validation lists: join the messages
		var parts []string
		for _, item := range t {
			if s := stringField(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindValidation
	default:
		return KindServer
	}
}

// networkError wraps a transport failure.
func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "service unavailable, check your connection", Err: err}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// Message returns a message suitable for display.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// IsNotFound reports whether err is a 404 from a backend.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// StatusOf returns the HTTP status of a backend error, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
