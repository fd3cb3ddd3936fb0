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
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/export"
	"github.com/trafficeye/console/core/pages"
	"github.com/trafficeye/console/core/query"
	"github.com/trafficeye/console/core/session"
	"github.com/trafficeye/console/core/users"
)

// recordFlags are shared by the commands that read one list resource.
type recordFlags struct {
	email    string
	password string
	filters  []string
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "Account email (or TRAFFICEYE_EMAIL)")
	cmd.Flags().StringVar(&f.password, "password", "", "Account password (or TRAFFICEYE_PASSWORD)")
	cmd.Flags().StringArrayVarP(&f.filters, "filter", "f", nil, "Filter as key=value, repeatable")
}

// records signs in, resolves the resource and returns its filtered rows.
func (a *App) records(ctx context.Context, resource string, f recordFlags) (pages.Meta, []string, [][]string, error) {
	logger, closer, err := a.logger()
	if err != nil {
		return pages.Meta{}, nil, nil, err
	}
	defer closer.Close()

	if err := a.backends(ctx, logger); err != nil {
		return pages.Meta{}, nil, nil, err
	}
	client := a.client(logger)

	registry := pages.NewRegistry(client)
	page, ok := registry.Get(resource)
	if !ok {
		return pages.Meta{}, nil, nil, fmt.Errorf("unknown resource %q, expected one of: %s", resource, strings.Join(registry.Names(), ", "))
	}
	meta := page.Meta()

	q := query.NewQuery(&url.URL{Path: meta.Path})
	for _, raw := range f.filters {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return meta, nil, nil, fmt.Errorf("invalid filter %q, expected key=value", raw)
		}
		q.Filters[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	email, password, err := a.credentials(f.email, f.password)
	if err != nil {
		return meta, nil, nil, err
	}
	ctx, id, err := a.signIn(ctx, client, email, password)
	if err != nil {
		return meta, nil, nil, err
	}
	if meta.AdminOnly && !id.IsAdmin() {
		return meta, nil, nil, fmt.Errorf("%s requires an administrator account", meta.Name)
	}

	headers, rows, err := page.Rows(ctx, id, q)
	if err != nil {
		return meta, nil, nil, fmt.Errorf("loading %s: %w", meta.Name, err)
	}
	return meta, headers, rows, nil
}

// signIn logs in and returns a context carrying the resulting identity.
func (a *App) signIn(ctx context.Context, client *api.Client, email, password string) (context.Context, *users.Identity, error) {
	resp, err := client.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return ctx, nil, fmt.Errorf("signing in as %s: %s", email, api.Message(err))
	}
	claims, err := session.ParseToken(resp.Token, a.config.Session.JWTSecret, time.Now())
	if err != nil {
		return ctx, nil, fmt.Errorf("reading sign-in token: %w", err)
	}
	id := &users.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
		Token:    resp.Token,
	}
	if resp.User != nil && id.Username == "" {
		id.Username = resp.User.Username
	}
	return users.WithIdentity(ctx, id), id, nil
}

func (a *App) tableCmd() *cobra.Command {
	var (
		f     recordFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "table <resource>",
		Short: "Print a resource list as a text table",
		Long: `Print the records of a list page (users, vehicles, accidents,
violations or cameras) with the same filters the web console offers.`,
		Example: `  trafficeye table vehicles --demo
  trafficeye table violations -f status=PENDING -f type=SPEEDING
  trafficeye table accidents --limit=20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			meta, headers, rows, err := a.records(ctx, args[0], f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No %s match.\n", meta.Name)
				return nil
			}
			total := len(rows)
			if limit > 0 && len(rows) > limit {
				rows = rows[:limit]
			}

			table := tablewriter.NewWriter(out)
			table.SetHeader(headers)
			table.SetAutoWrapText(false)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.AppendBulk(rows)
			table.Render()
			fmt.Fprintf(out, "%d of %d %s\n", len(rows), total, meta.Name)
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "Print at most this many rows (0 prints all)")

	return cmd
}

func (a *App) exportCmd() *cobra.Command {
	var (
		f      recordFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Write a resource list to a PDF file",
		Example: `  trafficeye export violations -o violations.pdf
  trafficeye export accidents -f severity=HIGH --demo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			meta, headers, rows, err := a.records(ctx, args[0], f)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("%s-%s.pdf", meta.Name, time.Now().Format("20060102"))
			}

			exporter := export.New()
			exporter.Watermark = a.config.Server.Title
			var buf bytes.Buffer
			if err := exporter.Table(&buf, meta.Title, headers, rows); err != nil {
				return fmt.Errorf("rendering %s: %w", meta.Name, err)
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d %s to %s\n", len(rows), meta.Name, output)
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to <resource>-<date>.pdf)")

	return cmd
}
