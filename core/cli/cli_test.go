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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trafficeye/console/core/config"
	"github.com/trafficeye/console/demo"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := config.Default()
	cfg.Log.Level = "error"
	app := NewApp(cfg)
	var out bytes.Buffer
	app.SetOutput(&out)
	app.SetArgs(args)
	err := app.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "trafficeye dev (commit: none)\n", out)
}

func TestTable(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "all vehicles",
			args: []string{"table", "vehicles", "--demo"},
			want: []string{"PLATE", "TE-100-AK", "12 of 12 vehicles"},
		},
		{
			name: "filtered and limited",
			args: []string{"table", "violations", "--demo", "-f", "status=PAID", "--limit", "3"},
			want: []string{"3 of 70 violations"},
		},
		{
			name: "no match",
			args: []string{"table", "vehicles", "--demo", "-f", "search=nothing-like-this"},
			want: []string{"No vehicles match."},
		},
		{
			name: "user sees own vehicles",
			args: []string{"table", "vehicles", "--demo", "--email", demo.UserEmail, "--password", demo.UserPassword},
			want: []string{"4 of 4 vehicles"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				require.Contains(t, out, w)
			}
		})
	}
}

func TestTableErrors(t *testing.T) {
	_, err := run(t, "table", "parking", "--demo")
	require.ErrorContains(t, err, `unknown resource "parking"`)

	_, err = run(t, "table", "vehicles", "--demo", "-f", "plate")
	require.ErrorContains(t, err, "expected key=value")

	_, err = run(t, "table", "users", "--demo", "--email", demo.UserEmail, "--password", demo.UserPassword)
	require.ErrorContains(t, err, "requires an administrator account")

	_, err = run(t, "table", "users", "--demo", "--email", demo.AdminEmail, "--password", "wrong")
	require.ErrorContains(t, err, "signing in as "+demo.AdminEmail)
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accidents.pdf")
	out, err := run(t, "export", "accidents", "--demo", "-o", path)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote 60 accidents to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestHealth(t *testing.T) {
	out, err := run(t, "health", "--demo")
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(out, "UP"))
	for _, svc := range []string{"auth", "core", "vision"} {
		require.Contains(t, out, svc)
	}
}

func TestHealthReportsDownServices(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Services.AuthURL = "http://127.0.0.1:1"
	cfg.Services.CoreURL = "http://127.0.0.1:1"
	cfg.Services.VisionURL = "http://127.0.0.1:1"
	cfg.Services.Timeout = "1s"
	app := NewApp(cfg)
	var out bytes.Buffer
	app.SetOutput(&out)
	app.SetArgs([]string{"health"})

	err := app.Execute()
	require.ErrorContains(t, err, "3 of 3 services unavailable")
	require.Equal(t, 3, strings.Count(out.String(), "DOWN"))
}
