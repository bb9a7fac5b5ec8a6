/*
Copyright © 2024 the citygrid authors.
This file is part of citygrid.

citygrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

citygrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with citygrid.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package render draws grid maps and city summaries as PNG images.
package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/carto"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/chuanlongZhou/indian-100-data/city"
	"github.com/chuanlongZhou/indian-100-data/grid"
)

// DefaultWidth is the default image width.
const DefaultWidth = 6 * vg.Inch

const (
	legendRatio = 0.1067 // legend height / width
	titleHeight = 0.3 * vg.Inch
)

var (
	grey  = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	blue  = color.NRGBA{B: 255, A: 128}
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 160, A: 96}
	clear = color.NRGBA{}
)

// cellValue returns the value of attribute in c. The attribute "count"
// is the number of points in the cell.
func cellValue(c *grid.Cell, attribute string) (float64, error) {
	if v, ok := c.Values[attribute]; ok {
		return v, nil
	}
	if attribute == "count" {
		return float64(c.Count), nil
	}
	return 0, fmt.Errorf("render: cell %d,%d has no attribute %q", c.X, c.Y, attribute)
}

// mapHeight returns the height of a map of b that is width wide.
func mapHeight(b *geom.Bounds, width vg.Length) (vg.Length, error) {
	dx, dy := b.Max.X-b.Min.X, b.Max.Y-b.Min.Y
	if !(dx > 0) || !(dy > 0) {
		return 0, fmt.Errorf("render: map extent %v is empty", b)
	}
	return width * vg.Length(dy/dx), nil
}

func newCanvas(b *geom.Bounds, c draw.Canvas) *carto.Canvas {
	return carto.NewCanvas(b.Max.Y, b.Min.Y, b.Max.X, b.Min.X, c)
}

// Grid draws cells colored by the value of attribute, with a legend
// underneath, and writes the image to w as a PNG.
func Grid(w io.Writer, cells []*grid.Cell, attribute string, width vg.Length) error {
	if len(cells) == 0 {
		return fmt.Errorf("render: no cells to draw")
	}
	vals := make([]float64, len(cells))
	b := cells[0].Bounds().Copy()
	for i, c := range cells {
		v, err := cellValue(c, attribute)
		if err != nil {
			return err
		}
		vals[i] = v
		b.Extend(c.Bounds())
	}
	mh, err := mapHeight(b, width)
	if err != nil {
		return err
	}
	lh := width * legendRatio

	img := vgimg.New(width, mh+lh)
	dc := draw.New(img)
	m := newCanvas(b, draw.Crop(dc, 0, 0, lh, 0))
	legend := draw.Crop(dc, 0, 0, 0, -mh)

	cmap := carto.NewColorMap(carto.Linear)
	cmap.Font = plot.DefaultFont
	cmap.LegendWidth = width
	cmap.LegendHeight = lh
	cmap.AddArray(vals)
	cmap.Set()
	// An all-zero map has no color scale.
	flat := floats.Max(vals) == 0 && floats.Min(vals) == 0

	lineStyle := draw.LineStyle{Width: 0.1 * vg.Millimeter}
	var glyph draw.GlyphStyle
	for i, c := range cells {
		fill := grey
		if !flat {
			fill = cmap.GetColor(vals[i])
		}
		lineStyle.Color = fill
		if err := m.DrawVector(c.Polygon, fill, lineStyle, glyph); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}
	if !flat {
		if err := cmap.Legend(&legend, attribute); err != nil {
			return fmt.Errorf("render: legend: %w", err)
		}
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("render: writing image: %w", err)
	}
	return nil
}

// City draws a city's boundary, if any, filled in green, its bounding box
// in grey, its grid cell outlines in blue and its center in red, and writes
// the image to w as a PNG.
func City(w io.Writer, s *city.Summary, cells, boundary []geom.Polygonal, width vg.Length) error {
	b := s.Box.Bounds().Copy()
	for _, c := range cells {
		b.Extend(c.Bounds())
	}
	for _, p := range boundary {
		b.Extend(p.Bounds())
	}
	mh, err := mapHeight(b, width)
	if err != nil {
		return err
	}

	img := vgimg.New(width, mh+titleHeight)
	dc := draw.New(img)
	dc.SetColor(color.White)
	dc.Fill(dc.Rectangle.Path())
	m := newCanvas(b, draw.Crop(dc, 0, 0, 0, -titleHeight))

	glyph := draw.GlyphStyle{Radius: 1 * vg.Millimeter, Shape: draw.CircleGlyph{}}
	for _, p := range boundary {
		if err := m.DrawVector(p, green, draw.LineStyle{Color: green, Width: vg.Points(0.5)}, glyph); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}
	if err := m.DrawVector(s.Box, clear, draw.LineStyle{Color: grey, Width: vg.Points(1)}, glyph); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	for _, c := range cells {
		if err := m.DrawVector(c, clear, draw.LineStyle{Color: blue, Width: vg.Points(1)}, glyph); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}
	glyph.Color = red
	if err := m.DrawVector(s.Center, red, draw.LineStyle{Color: red}, glyph); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	font, err := vg.MakeFont(plot.DefaultFont, 12)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	ts := draw.TextStyle{Color: color.Black, Font: font, XAlign: -0.5}
	dc.FillText(ts, vg.Point{X: dc.X(0.5), Y: dc.Max.Y - titleHeight*0.75}, s.City)

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("render: writing image: %w", err)
	}
	return nil
}
