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
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/metrics"
	"github.com/trafficeye/console/core/server"
	"github.com/trafficeye/console/core/session"
	"github.com/trafficeye/console/demo"
)

// sessionCleanupInterval is how often expired sessions are purged.
const sessionCleanupInterval = 10 * time.Minute

func (a *App) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web console",
		Example: `  trafficeye serve
  trafficeye serve --addr=:8097
  trafficeye serve --demo`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.config.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")

	return cmd
}

func (a *App) serve(ctx context.Context, cmd *cobra.Command) error {
	logger, closer, err := a.logger()
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := a.backends(ctx, logger); err != nil {
		return err
	}
	if a.demo {
		fmt.Fprintf(cmd.OutOrStdout(), "Demo accounts: %s / %s (admin), %s / %s (user)\n",
			demo.AdminEmail, demo.AdminPassword, demo.UserEmail, demo.UserPassword)
	}

	store, err := session.OpenStore(a.config.Session.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	sessions := session.NewManager(store, a.config.Session, logger.WithField("component", "session"))
	go sessions.Cleanup(ctx, sessionCleanupInterval)

	m := metrics.New()
	client := a.client(logger.WithField("component", "api"), api.WithObserver(m))

	srv, err := server.NewServer(a.config, client, sessions)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.SetLogger(logger)
	srv.SetMetrics(m)

	httpServer := &http.Server{
		Addr:              a.config.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.WithField("addr", a.config.Server.Addr).Infof("console listening")
		fmt.Fprintf(cmd.OutOrStdout(), "Console running at http://%s\n", a.config.Server.Addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving console: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
