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

// Package grid aggregates point sources, such as brick kilns, onto
// a regular grid of square cells. Each emitted cell carries the sum of the
// attribute values of the points that fall inside it.
package grid

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// Point is a geo-referenced point carrying numeric attribute values,
// e.g. CO2 or PM25 emissions.
type Point struct {
	geom.Point
	Values map[string]float64
}

// Index identifies a grid cell by its column (X) and row (Y).
type Index struct {
	X, Y int
}

func (i Index) less(j Index) bool {
	if i.X != j.X {
		return i.X < j.X
	}
	return i.Y < j.Y
}

// Cell is a grid cell holding the aggregated attributes of the points
// inside it. The cell extent is [X*BoxSize, (X+1)*BoxSize) ×
// [Y*BoxSize, (Y+1)*BoxSize).
type Cell struct {
	geom.Polygon
	Index
	BoxSize float64

	// Count is the number of points assigned to the cell.
	Count int

	Values map[string]float64
}

// Contains returns whether p is assigned to cell c.
func (c *Cell) Contains(p geom.Point) bool {
	i, err := PointIndex(p, c.BoxSize)
	if err != nil {
		return false
	}
	return i == c.Index
}

// Collection is a set of grid cells that share a coordinate reference
// system with the points they were created from.
type Collection struct {
	// CRS is an opaque coordinate reference system identifier
	// that is passed through unchanged from the input points.
	CRS string

	BoxSize    float64
	Attributes []string
	Cells      []*Cell
}

// NewCollection creates a collection from cells created with the given
// attributes and box size.
func NewCollection(crs string, boxSize float64, attributes []string, cells []*Cell) *Collection {
	return &Collection{
		CRS:        crs,
		BoxSize:    boxSize,
		Attributes: attributeSet(attributes),
		Cells:      cells,
	}
}

// Total returns the sum of attribute name over all cells in the
// collection.
func (c *Collection) Total(name string) float64 {
	var sum float64
	for _, cell := range c.Cells {
		sum += cell.Values[name]
	}
	return sum
}

// maxIndex bounds the grid indices to the range where float64 can still
// represent every integer exactly.
const maxIndex = 1 << 52

// PointIndex returns the index of the cell that p falls in for a grid with
// the given box size. The index is the floor of the coordinate divided by the
// box size, adjusted by at most one step so that p lies in the half-open
// extent of the cell as it is written out.
func PointIndex(p geom.Point, boxSize float64) (Index, error) {
	if err := checkBoxSize(boxSize); err != nil {
		return Index{}, err
	}
	x, okx := floorIndex(p.X, boxSize)
	y, oky := floorIndex(p.Y, boxSize)
	if !okx || !oky {
		return Index{}, &InvalidCoordinateError{Point: p}
	}
	return Index{X: x, Y: y}, nil
}

func checkBoxSize(boxSize float64) error {
	if !(boxSize > 0) || math.IsInf(boxSize, 1) {
		return &InvalidBoxSizeError{BoxSize: boxSize}
	}
	return nil
}

func floorIndex(v, boxSize float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	f := math.Floor(v / boxSize)
	if math.Abs(f) >= maxIndex {
		return 0, false
	}
	if v < f*boxSize {
		f--
	} else if v >= (f+1)*boxSize {
		f++
	}
	return int(f), true
}

// newCell creates an empty cell at index i.
func newCell(i Index, boxSize float64) *Cell {
	x0, y0 := float64(i.X)*boxSize, float64(i.Y)*boxSize
	x1, y1 := float64(i.X+1)*boxSize, float64(i.Y+1)*boxSize
	return &Cell{
		Polygon: geom.Polygon([]geom.Path{{
			{X: x0, Y: y0}, {X: x1, Y: y0},
			{X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}}),
		Index:   i,
		BoxSize: boxSize,
		Values:  make(map[string]float64),
	}
}

// sortCells orders cells by ascending X and then Y index.
func sortCells(cells []*Cell) {
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Index.less(cells[j].Index)
	})
}

// attributeSet returns the unique attribute names in sorted order.
func attributeSet(names []string) []string {
	seen := make(map[string]bool, len(names))
	o := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}
