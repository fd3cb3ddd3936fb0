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

package export

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficeye/console/core/api"
)

func testExporter() *Exporter {
	e := New()
	e.Now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
	return e
}

func TestTable(t *testing.T) {
	var rows [][]string
	for i := 0; i < 120; i++ {
		rows = append(rows, []string{fmt.Sprint(i + 1), "AB-123-CD", "Renault", "Clio", "Bleu clair"})
	}
	var buf bytes.Buffer
	err := testExporter().Table(&buf, "Vehicles", []string{"ID", "Plate", "Brand", "Model", "Color"}, rows)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "output is not a PDF")
	assert.Contains(t, buf.String(), "%%EOF")
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testExporter().Table(&buf, "Violations", []string{"ID", "Plate"}, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestAccident(t *testing.T) {
	a := &api.Accident{
		ID:          42,
		Location:    "Avenue Habib Bourguiba",
		Latitude:    36.8,
		Longitude:   10.18,
		Severity:    "HIGH",
		Status:      "CONFIRMED",
		Description: strings.Repeat("Two vehicles collided at the junction. ", 20),
		CreatedAt:   "2024-05-30T14:05:00Z",
		Vehicle: &api.Vehicle{
			Plate: "AB-123-CD", Brand: "Peugeot", Model: "208", Year: 2020,
			Type:  &api.VehicleType{ID: 1, Name: "Car"},
			Owner: &api.Owner{ID: 3, Username: "alice"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, testExporter().Accident(&buf, a))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	d := testExporter().newDocument("widths")
	d.pdf.SetFont(fontFamily, "", 9)
	widths := d.columnWidths([]string{"ID", "Description"}, [][]string{{"1", strings.Repeat("x", 80)}})

	var total float64
	for _, w := range widths {
		total += w
	}
	assert.InDelta(t, 210-2*margin, total, 0.01)
	assert.Greater(t, widths[1], widths[0])
}

func TestFitShortensLongCells(t *testing.T) {
	d := testExporter().newDocument("fit")
	d.pdf.SetFont(fontFamily, "", 9)

	assert.Equal(t, "short", d.fit("short", 40))
	got := d.fit(strings.Repeat("long text ", 20), 30)
	assert.True(t, strings.HasSuffix(got, "..."), got)
	assert.LessOrEqual(t, d.pdf.GetStringWidth(got), 28.0)
}

func TestReportTime(t *testing.T) {
	assert.Equal(t, "2024-05-30 14:05 UTC", reportTime("2024-05-30T14:05:00Z"))
	assert.Equal(t, "yesterday", reportTime("yesterday"))
}
