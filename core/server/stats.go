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
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/charts"
	"github.com/trafficeye/console/core/rendering"
	"github.com/trafficeye/console/core/users"
	"github.com/trafficeye/console/core/views"
)

// handleStats renders the accident and violation dashboards. Both datasets
// load concurrently and a failed one leaves the other panel intact.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	dr := charts.ParseDateRange(from, to)
	id := identity(r)

	var (
		accidents            []api.Accident
		violations           []api.Violation
		accErr, violationErr error
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		accidents, accErr = s.statsAccidents(ctx, id)
		return nil
	})
	g.Go(func() error {
		violations, violationErr = s.statsViolations(ctx, id)
		return nil
	})
	_ = g.Wait()

	for _, err := range []error{accErr, violationErr} {
		if api.KindOf(err) == api.KindUnauthorized {
			s.backendError(w, r, err)
			return
		}
	}

	stamps, labels := make([]string, 0, len(accidents)), make([]string, 0, len(accidents))
	for _, a := range accidents {
		stamps, labels = append(stamps, a.CreatedAt), append(labels, a.Severity)
	}
	accPanel := views.BuildStatsPanel("Accidents", "By severity", stamps, labels, dr)

	stamps, labels = make([]string, 0, len(violations)), make([]string, 0, len(violations))
	for _, v := range violations {
		stamps, labels = append(stamps, v.CreatedAt), append(labels, v.Type)
	}
	violationPanel := views.BuildStatsPanel("Violations", "By type", stamps, labels, dr)

	if accErr != nil {
		s.log(r).WithError(accErr).Warnf("loading accident statistics")
		accPanel.Error = api.Message(accErr)
	}
	if violationErr != nil {
		s.log(r).WithError(violationErr).Warnf("loading violation statistics")
		violationPanel.Error = api.Message(violationErr)
	}

	s.render(w, r, http.StatusOK, rendering.PageStats, views.StatsViewModel{
		Chrome:     s.chrome(w, r, "Statistics"),
		From:       from,
		To:         to,
		Accidents:  accPanel,
		Violations: violationPanel,
	})
}

func (s *Server) statsAccidents(ctx context.Context, id *users.Identity) ([]api.Accident, error) {
	if id.IsAdmin() {
		return s.client.ListAccidents(ctx)
	}
	return s.client.ListUserAccidents(ctx, id.UserID)
}

func (s *Server) statsViolations(ctx context.Context, id *users.Identity) ([]api.Violation, error) {
	if id.IsAdmin() {
		return s.client.ListViolations(ctx)
	}
	return s.client.ListUserViolations(ctx, id.UserID)
}
