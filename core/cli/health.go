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

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trafficeye/console/core/api"
)

var (
	colorUp   = color.New(color.FgGreen, color.Bold)
	colorDown = color.New(color.FgRed, color.Bold)
	colorWarn = color.New(color.FgYellow)
	colorDim  = color.New(color.Faint)
)

// healthCheck is the outcome of pinging one service.
type healthCheck struct {
	service api.Service
	base    string
	status  int
	elapsed time.Duration
	err     error
}

func (a *App) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend services answer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			logger, closer, err := a.logger()
			if err != nil {
				return err
			}
			defer closer.Close()
			if err := a.backends(ctx, logger); err != nil {
				return err
			}
			client := a.client(logger)

			out := cmd.OutOrStdout()
			down := 0
			for _, svc := range []api.Service{api.ServiceAuth, api.ServiceCore, api.ServiceVision} {
				check := ping(ctx, client, svc)
				switch {
				case check.err != nil:
					down++
					fmt.Fprintf(out, "%-7s %s %s %s\n", check.service, colorDown.Sprint("DOWN"), check.base, colorDim.Sprint(api.Message(check.err)))
				case check.status >= 500:
					down++
					fmt.Fprintf(out, "%-7s %s %s %s\n", check.service, colorWarn.Sprintf("HTTP %d", check.status), check.base, colorDim.Sprint(check.elapsed.Round(time.Millisecond)))
				default:
					fmt.Fprintf(out, "%-7s %s %s %s\n", check.service, colorUp.Sprint("UP"), check.base, colorDim.Sprint(check.elapsed.Round(time.Millisecond)))
				}
			}
			if down > 0 {
				return fmt.Errorf("%d of 3 services unavailable", down)
			}
			return nil
		},
	}
}

func ping(ctx context.Context, client *api.Client, svc api.Service) healthCheck {
	start := time.Now()
	status, err := client.Ping(ctx, svc)
	return healthCheck{
		service: svc,
		base:    client.BaseURL(svc),
		status:  status,
		elapsed: time.Since(start),
		err:     err,
	}
}
