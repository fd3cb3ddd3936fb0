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

// Package cli is the trafficeye command line: the console server plus a few
// commands that read the backends directly.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/config"
	"github.com/trafficeye/console/core/logging"
	"github.com/trafficeye/console/demo"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	config *config.Config
	root   *cobra.Command
	demo   bool
	debug  bool
}

// NewApp creates the CLI for cfg.
func NewApp(cfg *config.Config) *App {
	a := &App{config: cfg}

	a.root = &cobra.Command{
		Use:   "trafficeye",
		Short: "Traffic violation and accident monitoring console",
		Long: `TrafficEye serves the web console for traffic violations, accidents,
vehicles and cameras on top of the auth, core and vision REST services.

Run "trafficeye serve --demo" to try it against an in-memory backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.root.PersistentFlags().BoolVar(&a.demo, "demo", cfg.Server.Demo, "Use the in-memory demo backend instead of the configured services")
	a.root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Log at debug level")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.serveCmd())
	a.root.AddCommand(a.tableCmd())
	a.root.AddCommand(a.exportCmd())
	a.root.AddCommand(a.healthCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trafficeye %s (commit: %s)\n", Version, Commit)
		},
	}
}

// SetOutput redirects command output, for tests.
func (a *App) SetOutput(w io.Writer) {
	a.root.SetOut(w)
	a.root.SetErr(w)
}

// SetArgs replaces os.Args[1:], for tests.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// ExecuteContext runs the CLI application with ctx.
func (a *App) ExecuteContext(ctx context.Context) error {
	return a.root.ExecuteContext(ctx)
}

// logger builds the configured logger. --debug lowers the level.
func (a *App) logger() (logging.Logger, io.Closer, error) {
	cfg := a.config.Log
	if a.debug {
		cfg.Level = "debug"
	}
	return logging.New(cfg)
}

// backends points the service URLs at a demo backend when --demo is set.
// The backend lives until ctx is done.
func (a *App) backends(ctx context.Context, logger logging.Logger) error {
	if !a.demo {
		return nil
	}
	if a.config.Session.JWTSecret == "" {
		a.config.Session.JWTSecret = uuid.NewString()
	}
	b := demo.New(a.config.Session.JWTSecret, demo.WithLogger(logger.WithField("component", "demo")))
	base, err := demo.Start(ctx, b)
	if err != nil {
		return err
	}
	a.config.Services.AuthURL = base
	a.config.Services.CoreURL = base
	a.config.Services.VisionURL = base
	logger.WithField("url", base).Infof("demo backend started")
	return nil
}

// client creates a backend client for the current configuration.
func (a *App) client(logger logging.Logger, opts ...api.Option) *api.Client {
	opts = append([]api.Option{api.WithLogger(logger)}, opts...)
	return api.NewClient(a.config.Services, a.config.Cache, opts...)
}

// credentials returns the account the direct commands sign in with. The
// demo admin is used when nothing else is given in demo mode.
func (a *App) credentials(email, password string) (string, string, error) {
	if email == "" {
		email = os.Getenv("TRAFFICEYE_EMAIL")
	}
	if password == "" {
		password = os.Getenv("TRAFFICEYE_PASSWORD")
	}
	if email == "" && a.demo {
		email, password = demo.AdminEmail, demo.AdminPassword
	}
	if email == "" || password == "" {
		return "", "", fmt.Errorf("sign-in required: pass --email and --password or set TRAFFICEYE_EMAIL and TRAFFICEYE_PASSWORD")
	}
	return email, password, nil
}
