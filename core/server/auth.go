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

package server

import (
	"net/http"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/forms"
	"github.com/trafficeye/console/core/rendering"
	"github.com/trafficeye/console/core/session"
	"github.com/trafficeye/console/core/views"
)

func (s *Server) authPage(w http.ResponseWriter, r *http.Request, status int, page rendering.Page, title string, vm views.AuthViewModel) {
	vm.Chrome = s.chrome(w, r, title)
	s.render(w, r, status, page, vm)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	next := session.SafeNext(r.URL.Query().Get("next"), "/")
	if identity(r) != nil {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.authPage(w, r, http.StatusOK, rendering.PageLogin, "Sign in", views.AuthViewModel{Next: next})
}

// handleLogin exchanges the credentials for a backend token and starts a
// session carrying it.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.ParseLoginForm(r.PostForm)
	next := session.SafeNext(form.Next, "/")
	vm := views.AuthViewModel{Email: form.Email, Next: next}

	errs := form.Validate()
	if !errs.Any() {
		resp, err := s.client.Login(r.Context(), api.LoginRequest{Email: form.Email, Password: form.Password})
		if err == nil {
			if _, err := s.sessions.Begin(r.Context(), w, resp.Token); err != nil {
				s.log(r).WithError(err).Warnf("rejected login token")
				errs.Add(forms.FormLevel, "The sign-in service returned an unusable token.")
			} else {
				http.Redirect(w, r, next, http.StatusSeeOther)
				return
			}
		} else if api.KindOf(err) == api.KindUnauthorized {
			errs.Add(forms.FormLevel, "Invalid email or password.")
		} else {
			errs.Add(forms.FormLevel, api.Message(err))
		}
	}
	vm.Errors = errs
	s.authPage(w, r, http.StatusUnprocessableEntity, rendering.PageLogin, "Sign in", vm)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.authPage(w, r, http.StatusOK, rendering.PageRegister, "Create an account", views.AuthViewModel{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.ParseRegisterForm(r.PostForm)
	vm := views.AuthViewModel{Username: form.Username, Email: form.Email}

	errs := form.Validate()
	if !errs.Any() {
		err := s.client.Register(r.Context(), api.RegisterRequest{Username: form.Username, Email: form.Email, Password: form.Password})
		if err == nil {
			vm.Done = true
			s.authPage(w, r, http.StatusOK, rendering.PageRegister, "Create an account", vm)
			return
		}
		errs.Add(forms.FormLevel, api.Message(err))
	}
	vm.Errors = errs
	s.authPage(w, r, http.StatusUnprocessableEntity, rendering.PageRegister, "Create an account", vm)
}

func (s *Server) handleForgotPage(w http.ResponseWriter, r *http.Request) {
	s.authPage(w, r, http.StatusOK, rendering.PageForgot, "Forgot password", views.AuthViewModel{})
}

// handleForgot always reports success for a well-formed address so the page
// does not reveal which emails have accounts.
func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.errorPage(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := forms.ParseForgotPasswordForm(r.PostForm)
	vm := views.AuthViewModel{Email: form.Email}

	errs := form.Validate()
	if !errs.Any() {
		err := s.client.ForgotPassword(r.Context(), form.Email)
		if err == nil || api.IsNotFound(err) {
			vm.Done = true
			s.authPage(w, r, http.StatusOK, rendering.PageForgot, "Forgot password", vm)
			return
		}
		errs.Add(forms.FormLevel, api.Message(err))
	}
	vm.Errors = errs
	s.authPage(w, r, http.StatusUnprocessableEntity, rendering.PageForgot, "Forgot password", vm)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.End(w, r); err != nil {
		s.log(r).WithError(err).Warnf("ending session")
	}
	if sess := session.FromContext(r.Context()); sess != nil {
		s.chatLimiters.Remove(sess.ID)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
