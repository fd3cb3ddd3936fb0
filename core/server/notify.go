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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/rendering"
	"github.com/trafficeye/console/core/session"
	"github.com/trafficeye/console/core/views"
)

// maxChatMessage bounds a single chat message in characters.
const maxChatMessage = 1000

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	vm := views.NotificationsViewModel{Chrome: s.chrome(w, r, "Notifications")}
	items, err := s.client.ListNotifications(r.Context(), identity(r).UserID)
	if err != nil {
		if api.KindOf(err) == api.KindUnauthorized {
			s.backendError(w, r, err)
			return
		}
		s.log(r).WithError(err).Warnf("listing notifications")
		vm.Error = api.Message(err)
	}
	vm.Items = views.BuildNotifications(items)
	vm.Unread = views.UnreadCount(items)
	s.render(w, r, http.StatusOK, rendering.PageNotifications, vm)
}

// pollResponse is the JSON body of the notification poll.
type pollResponse struct {
	Unread int        `json:"unread"`
	Items  []pollItem `json:"items"`
}

type pollItem struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	When    string `json:"when"`
	Read    bool   `json:"read"`
}

// handleNotificationsPoll answers the header badge poll. A poll overtaken by
// a newer one from the same user gets 204 and no body.
func (s *Server) handleNotificationsPoll(w http.ResponseWriter, r *http.Request) {
	key := identity(r).UserID
	ctx, gen, done := s.polls.Begin(r.Context(), key)
	defer done()

	items, err := s.client.ListNotifications(ctx, key)
	if !s.polls.Current(key, gen) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err != nil {
		status := http.StatusBadGateway
		if api.KindOf(err) == api.KindUnauthorized {
			status = http.StatusUnauthorized
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": api.Message(err)})
		return
	}
	resp := pollResponse{Unread: views.UnreadCount(items), Items: []pollItem{}}
	for _, n := range views.BuildNotifications(items) {
		resp.Items = append(resp.Items, pollItem{ID: n.ID, Title: n.Title, Message: n.Message, When: n.When, Read: n.Read})
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log(r).WithError(err).Debugf("writing poll response")
	}
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	notificationID, ok := pathID(r, "id")
	if !ok {
		s.errorPage(w, r, http.StatusNotFound, "Unknown notification.")
		return
	}
	if err := s.client.MarkNotificationRead(r.Context(), notificationID); err != nil {
		if api.KindOf(err) == api.KindUnauthorized {
			s.backendError(w, r, err)
			return
		}
		setFlash(w, flashAlert, api.Message(err))
	}
	http.Redirect(w, r, returnTo(r, "/notifications"), http.StatusSeeOther)
}

// chatLimiter returns the rate limiter of a session.
func (s *Server) chatLimiter(sessionID string) *rate.Limiter {
	if l, ok := s.chatLimiters.Get(sessionID); ok {
		return l
	}
	perSecond := rate.Limit(float64(s.cfg.Chat.RatePerMinute) / 60)
	l := rate.NewLimiter(perSecond, s.cfg.Chat.Burst)
	s.chatLimiters.Add(sessionID, l)
	return l
}

func (s *Server) chatPage(w http.ResponseWriter, r *http.Request, status int, draft, errMsg string) {
	vm := views.ChatViewModel{Chrome: s.chrome(w, r, "Assistant"), Draft: draft, Error: errMsg}
	sess := session.FromContext(r.Context())
	history, err := s.sessions.Store().ChatHistory(r.Context(), sess.ID)
	if err != nil {
		s.log(r).WithError(err).Errorf("loading chat transcript")
		if vm.Error == "" {
			vm.Error = "The conversation could not be loaded."
		}
	}
	for _, e := range history {
		vm.Messages = append(vm.Messages, views.ChatMessageView{
			Mine:    e.Role == chatRoleUser,
			Content: e.Content,
			When:    e.CreatedAt.Local().Format("15:04"),
		})
	}
	s.render(w, r, status, rendering.PageChat, vm)
}

const (
	chatRoleUser      = "user"
	chatRoleAssistant = "assistant"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.chatPage(w, r, http.StatusOK, "", "")
}

// handleChatSend forwards a message with the session transcript to the chat
// backend and stores both sides of the exchange.
func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	message := strings.TrimSpace(r.FormValue("message"))
	switch {
	case message == "":
		s.chatPage(w, r, http.StatusUnprocessableEntity, "", "Type a message first.")
		return
	case utf8.RuneCountInString(message) > maxChatMessage:
		s.chatPage(w, r, http.StatusUnprocessableEntity, message, fmt.Sprintf("Messages are limited to %d characters.", maxChatMessage))
		return
	case !s.chatLimiter(sess.ID).Allow():
		s.chatPage(w, r, http.StatusTooManyRequests, message, "You are sending messages too quickly. Wait a moment and try again.")
		return
	}

	store := s.sessions.Store()
	history, err := store.ChatHistory(r.Context(), sess.ID)
	if err != nil {
		s.log(r).WithError(err).Errorf("loading chat transcript")
	}
	turns := make([]api.ChatTurn, 0, len(history))
	for _, e := range history {
		turns = append(turns, api.ChatTurn{Role: e.Role, Content: e.Content})
	}

	reply, err := s.client.Chat(r.Context(), api.ChatRequest{Message: message, UserID: sess.UserID, History: turns})
	if err != nil {
		if api.KindOf(err) == api.KindUnauthorized {
			s.backendError(w, r, err)
			return
		}
		s.log(r).WithError(err).Warnf("chat backend failed")
		s.chatPage(w, r, http.StatusBadGateway, message, api.Message(err))
		return
	}

	limit := s.cfg.Chat.History
	err = errors.Join(
		store.AppendChat(r.Context(), sess.ID, session.ChatEntry{Role: chatRoleUser, Content: message, CreatedAt: s.now()}, limit),
		store.AppendChat(r.Context(), sess.ID, session.ChatEntry{Role: chatRoleAssistant, Content: reply.Reply, CreatedAt: s.now()}, limit),
	)
	if err != nil {
		s.log(r).WithError(err).Errorf("saving chat transcript")
	}
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := s.sessions.Store().ClearChat(r.Context(), sess.ID); err != nil {
		s.log(r).WithError(err).Errorf("clearing chat transcript")
		setFlash(w, flashAlert, "The conversation could not be cleared.")
	}
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}
