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

// Package export renders tables and accident reports as PDF documents.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/trafficeye/console/core/api"
	"github.com/trafficeye/console/core/charts"
)

type rgb struct{ r, g, b int }

// Palette.
var (
	headerNavy = rgb{0x1f, 0x2a, 0x44}
	rowGrey    = rgb{0xf2, 0xf3, 0xf5}
	accentRed  = rgb{0xc0, 0x39, 0x2b}
	textDark   = rgb{0x22, 0x22, 0x22}
	mutedGrey  = rgb{0x88, 0x88, 0x88}
)

const (
	margin     = 15.0
	rowHeight  = 7.0
	fontFamily = "Helvetica"
	minColumn  = 14.0
)

// Exporter writes PDF documents with the console's page layout.
type Exporter struct {
	// Watermark is drawn diagonally across every page. Empty disables it.
	Watermark string
	// Author is written into the document metadata.
	Author string
	// Now stamps the generation time; nil means time.Now.
	Now func() time.Time
}

// New returns an exporter with the default watermark.
func New() *Exporter {
	return &Exporter{Watermark: "TrafficEye", Author: "TrafficEye console"}
}

func (e *Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// document is one PDF being written.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (e *Exporter) newDocument(title string) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin+5)
	pdf.SetTitle(title, true)
	pdf.SetAuthor(e.Author, true)
	pdf.SetCreationDate(e.now())
	pdf.AliasNbPages("")

	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	generated := e.now().Format("2006-01-02 15:04")

	pdf.SetHeaderFunc(func() {
		if e.Watermark != "" {
			d.watermark(e.Watermark)
		}
		pdf.SetFont(fontFamily, "B", 15)
		setText(pdf, headerNavy)
		pdf.CellFormat(0, 9, d.tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 8)
		setText(pdf, mutedGrey)
		pdf.CellFormat(0, 5, "Generated "+generated, "", 1, "L", false, 0, "")
		setDraw(pdf, accentRed)
		pdf.SetLineWidth(0.6)
		w, _ := pdf.GetPageSize()
		y := pdf.GetY() + 1
		pdf.Line(margin, y, w-margin, y)
		pdf.Ln(5)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin)
		pdf.SetFont(fontFamily, "I", 8)
		setText(pdf, mutedGrey)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return d
}

func (d *document) watermark(text string) {
	pdf := d.pdf
	w, h := pdf.GetPageSize()
	pdf.SetFont(fontFamily, "B", 60)
	setText(pdf, accentRed)
	pdf.SetAlpha(0.08, "Normal")
	pdf.TransformBegin()
	pdf.TransformRotate(45, w/2, h/2)
	tw := pdf.GetStringWidth(text)
	pdf.Text(w/2-tw/2, h/2, d.tr(text))
	pdf.TransformEnd()
	pdf.SetAlpha(1, "Normal")
}

func (d *document) finish(w io.Writer) error {
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
func setDraw(pdf *fpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }

// Table writes a single table with a repeating header row. Cells that do not
// fit their column are shortened with an ellipsis.
func (e *Exporter) Table(w io.Writer, title string, headers []string, rows [][]string) error {
	d := e.newDocument(title)
	pdf := d.pdf

	pdf.SetFont(fontFamily, "", 9)
	widths := d.columnWidths(headers, rows)

	header := func() {
		pdf.SetFont(fontFamily, "B", 9)
		setFill(pdf, headerNavy)
		setText(pdf, rgb{0xff, 0xff, 0xff})
		setDraw(pdf, headerNavy)
		pdf.SetLineWidth(0.2)
		for i, h := range headers {
			pdf.CellFormat(widths[i], rowHeight+1, d.fit(h, widths[i]), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(fontFamily, "", 9)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	for r, row := range rows {
		if pdf.GetY()+rowHeight > pageHeight-margin-5 {
			pdf.AddPage()
			header()
		}
		if r%2 == 1 {
			setFill(pdf, rowGrey)
		} else {
			setFill(pdf, rgb{0xff, 0xff, 0xff})
		}
		setText(pdf, textDark)
		setDraw(pdf, rowGrey)
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(widths[i], rowHeight, d.fit(cell, widths[i]), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(rows) == 0 {
		pdf.Ln(4)
		pdf.SetFont(fontFamily, "I", 10)
		setText(pdf, mutedGrey)
		pdf.CellFormat(0, rowHeight, "No records found", "", 1, "C", false, 0, "")
	} else {
		pdf.Ln(3)
		pdf.SetFont(fontFamily, "", 8)
		setText(pdf, mutedGrey)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d records", len(rows)), "", 1, "R", false, 0, "")
	}
	return d.finish(w)
}

// columnWidths sizes each column to its widest cell, then scales the set to
// the printable width.
func (d *document) columnWidths(headers []string, rows [][]string) []float64 {
	pageWidth, _ := d.pdf.GetPageSize()
	avail := pageWidth - 2*margin
	widths := make([]float64, len(headers))
	if len(headers) == 0 {
		return widths
	}
	var total float64
	for i, h := range headers {
		widest := d.pdf.GetStringWidth(d.tr(h)) + 4
		for _, row := range rows {
			if i < len(row) {
				if cw := d.pdf.GetStringWidth(d.tr(row[i])) + 4; cw > widest {
					widest = cw
				}
			}
		}
		if widest < minColumn {
			widest = minColumn
		}
		widths[i] = widest
		total += widest
	}
	scale := avail / total
	for i := range widths {
		widths[i] *= scale
	}
	return widths
}

// fit translates s for the core fonts and shortens it to width.
func (d *document) fit(s string, width float64) string {
	s = d.tr(strings.Join(strings.Fields(s), " "))
	limit := width - 2
	if d.pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && d.pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// Accident writes a one-page incident report.
func (e *Exporter) Accident(w io.Writer, a *api.Accident) error {
	d := e.newDocument("Accident report #" + strconv.FormatInt(a.ID, 10))
	pdf := d.pdf

	section := func(name string) {
		pdf.Ln(2)
		pdf.SetFont(fontFamily, "B", 11)
		setText(pdf, accentRed)
		pdf.CellFormat(0, 7, d.tr(name), "B", 1, "L", false, 0, "")
		pdf.Ln(1)
	}
	field := func(label, value string) {
		if value == "" {
			value = "-"
		}
		pdf.SetFont(fontFamily, "B", 9)
		setText(pdf, headerNavy)
		pdf.CellFormat(45, 6, d.tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 9)
		setText(pdf, textDark)
		pdf.MultiCell(0, 6, d.tr(value), "", "L", false)
	}

	section("Incident")
	field("Reported", reportTime(a.CreatedAt))
	field("Location", a.Location)
	if a.Latitude != 0 || a.Longitude != 0 {
		field("Coordinates", fmt.Sprintf("%.5f, %.5f", a.Latitude, a.Longitude))
	}
	field("Severity", a.Severity)
	field("Status", a.Status)
	approved := "No"
	if a.Approved {
		approved = "Yes"
	}
	field("Approved", approved)
	if a.CameraID != 0 {
		field("Camera", "#"+strconv.FormatInt(a.CameraID, 10))
	}

	if v := a.Vehicle; v != nil {
		section("Vehicle")
		field("Plate", v.Plate)
		field("Make and model", strings.TrimSpace(v.Brand+" "+v.Model))
		field("Color", v.Color)
		if v.Year > 0 {
			field("Year", strconv.Itoa(v.Year))
		}
		if v.Type != nil {
			field("Type", v.Type.Name)
		}
		if v.Owner != nil {
			field("Owner", strings.TrimSpace(v.Owner.Username+" "+v.Owner.Email))
		}
	}

	section("Description")
	pdf.SetFont(fontFamily, "", 9)
	setText(pdf, textDark)
	desc := a.Description
	if desc == "" {
		desc = "No description provided."
	}
	pdf.MultiCell(0, 5, d.tr(desc), "", "L", false)

	if a.ImageURL != "" {
		section("Evidence")
		field("Image", a.ImageURL)
	}
	return d.finish(w)
}

func reportTime(raw string) string {
	t, err := charts.ParseTimestamp(raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
