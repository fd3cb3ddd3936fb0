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

// Package forms parses and validates the console's HTML forms. Validation
// runs before anything is sent to a backend; every problem is reported per
// field so it can be shown next to its input.
package forms

import (
	"net/url"
	"regexp"
	"strings"
)

// Errors maps a field name to its message. The empty key holds a
// form-level message, such as a backend business error.
type Errors map[string]string

// FormLevel is the key of the form-level message.
const FormLevel = ""

// Add records msg for field unless the field already has a message.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Any reports whether there is at least one error.
func (e Errors) Any() bool {
	return len(e) > 0
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// Form returns the form-level message.
func (e Errors) Form() string {
	return e[FormLevel]
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func value(v url.Values, key string) string {
	return strings.TrimSpace(v.Get(key))
}

func required(errs Errors, field, val, label string) bool {
	if val == "" {
		errs.Add(field, label+" is required")
		return false
	}
	return true
}

func checkEmail(errs Errors, field, val string) {
	if required(errs, field, val, "Email") && !emailPattern.MatchString(val) {
		errs.Add(field, "Enter a valid email address")
	}
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string
	Password string
	Next     string
}

// ParseLoginForm reads a submitted login form.
func ParseLoginForm(v url.Values) LoginForm {
	return LoginForm{
		Email:    value(v, "email"),
		Password: v.Get("password"),
		Next:     value(v, "next"),
	}
}

// Validate checks the login form.
func (f LoginForm) Validate() Errors {
	errs := Errors{}
	checkEmail(errs, "email", f.Email)
	required(errs, "password", f.Password, "Password")
	return errs
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,30}$`)

// RegisterForm is the account creation form.
type RegisterForm struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

// ParseRegisterForm reads a submitted registration form.
func ParseRegisterForm(v url.Values) RegisterForm {
	return RegisterForm{
		Username: value(v, "username"),
		Email:    value(v, "email"),
		Password: v.Get("password"),
		Confirm:  v.Get("confirm"),
	}
}

// Validate checks the registration form.
func (f RegisterForm) Validate() Errors {
	errs := Errors{}
	if required(errs, "username", f.Username, "Username") && !usernamePattern.MatchString(f.Username) {
		errs.Add("username", "Username must be 3 to 30 letters, digits, dots, dashes or underscores")
	}
	checkEmail(errs, "email", f.Email)
	if required(errs, "password", f.Password, "Password") && len(f.Password) < MinPasswordLength {
		errs.Add("password", "Password must be at least 8 characters")
	}
	if f.Confirm != f.Password {
		errs.Add("confirm", "Passwords do not match")
	}
	return errs
}

// ForgotPasswordForm asks for a reset mail.
type ForgotPasswordForm struct {
	Email string
}

// ParseForgotPasswordForm reads a submitted forgot-password form.
func ParseForgotPasswordForm(v url.Values) ForgotPasswordForm {
	return ForgotPasswordForm{Email: value(v, "email")}
}

// Validate checks the forgot-password form.
func (f ForgotPasswordForm) Validate() Errors {
	errs := Errors{}
	checkEmail(errs, "email", f.Email)
	return errs
}
