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

// Package geo reads and writes the geo-referenced feature files that the
// grid and city tools consume and produce.
package geo

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/spf13/cast"

	"github.com/chuanlongZhou/indian-100-data/grid"
)

// CRS is the named form of a GeoJSON "crs" member.
type CRS struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string     `json:"type"`
	CRS      *CRS       `json:"crs,omitempty"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection creates an empty feature collection. If crs is not
// empty it is written as a named "crs" member.
func NewFeatureCollection(crs string) *FeatureCollection {
	fc := &FeatureCollection{Type: "FeatureCollection", Features: []*Feature{}}
	if crs != "" {
		fc.CRS = &CRS{Type: "name"}
		fc.CRS.Properties.Name = crs
	}
	return fc
}

// CRSName returns the name of the collection's coordinate reference system,
// or an empty string if it has none.
func (fc *FeatureCollection) CRSName() string {
	if fc.CRS == nil {
		return ""
	}
	return fc.CRS.Properties.Name
}

// Add appends a feature with geometry g and the given properties.
func (fc *FeatureCollection) Add(g geom.Geom, properties map[string]interface{}) error {
	j, err := geojson.ToGeoJSON(g)
	if err != nil {
		return fmt.Errorf("geo: encoding feature %d: %w", len(fc.Features), err)
	}
	fc.Features = append(fc.Features, &Feature{
		Type:       "Feature",
		Geometry:   j,
		Properties: properties,
	})
	return nil
}

// Geometry decodes the geometry of feature i.
func (fc *FeatureCollection) Geometry(i int) (geom.Geom, error) {
	f := fc.Features[i]
	if f.Geometry == nil {
		return nil, fmt.Errorf("geo: feature %d has no geometry", i)
	}
	g, err := geojson.FromGeoJSON(f.Geometry)
	if err != nil {
		return nil, fmt.Errorf("geo: decoding feature %d: %w", i, err)
	}
	return g, nil
}

// Encode writes fc to w as JSON.
func (fc *FeatureCollection) Encode(w io.Writer) error {
	e := json.NewEncoder(w)
	if err := e.Encode(fc); err != nil {
		return fmt.Errorf("geo: writing feature collection: %w", err)
	}
	return nil
}

// DecodeFeatureCollection reads a GeoJSON feature collection from r.
func DecodeFeatureCollection(r io.Reader) (*FeatureCollection, error) {
	fc := new(FeatureCollection)
	if err := json.NewDecoder(r).Decode(fc); err != nil {
		return nil, fmt.Errorf("geo: reading feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("geo: GeoJSON type is %q, not FeatureCollection", fc.Type)
	}
	return fc, nil
}

// PointSet is a set of points that share a coordinate reference system.
type PointSet struct {
	CRS    string
	Points []grid.Point
}

// DecodePoints reads a GeoJSON feature collection of points from r.
// Properties named in attributes become point values; numbers encoded
// as strings are accepted. If attributes is empty, every numeric property
// becomes a value. Properties that are missing are left out, so that the
// aggregator can report them. If countAttribute is not empty, it is set
// to 1 for every point so that summing it counts the points.
func DecodePoints(r io.Reader, attributes []string, countAttribute string) (*PointSet, error) {
	fc, err := DecodeFeatureCollection(r)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(attributes))
	for _, a := range attributes {
		want[a] = true
	}
	ps := &PointSet{
		CRS:    fc.CRSName(),
		Points: make([]grid.Point, 0, len(fc.Features)),
	}
	for i, f := range fc.Features {
		g, err := fc.Geometry(i)
		if err != nil {
			return nil, err
		}
		p, ok := g.(geom.Point)
		if !ok {
			return nil, fmt.Errorf("geo: feature %d is a %T, not a point", i, g)
		}
		vals, err := pointValues(f.Properties, want)
		if err != nil {
			return nil, fmt.Errorf("geo: feature %d: %w", i, err)
		}
		if countAttribute != "" {
			vals[countAttribute] = 1
		}
		ps.Points = append(ps.Points, grid.Point{Point: p, Values: vals})
	}
	return ps, nil
}

func pointValues(props map[string]interface{}, want map[string]bool) (map[string]float64, error) {
	vals := make(map[string]float64)
	for k, v := range props {
		if len(want) > 0 && !want[k] {
			continue
		}
		if v == nil {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			if len(want) == 0 {
				continue // Not a numeric property.
			}
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		vals[k] = f
	}
	return vals, nil
}

// FilterX returns the points with min < X < max. It is used to drop points
// that fall outside the region of interest before aggregation.
func FilterX(points []grid.Point, min, max float64) []grid.Point {
	o := make([]grid.Point, 0, len(points))
	for _, p := range points {
		if p.X > min && p.X < max {
			o = append(o, p)
		}
	}
	return o
}

// CellFeatures converts a grid collection to a GeoJSON feature collection.
// Each feature has grid_x, grid_y and count properties plus one property per
// aggregated attribute.
func CellFeatures(c *grid.Collection) (*FeatureCollection, error) {
	fc := NewFeatureCollection(c.CRS)
	for _, cell := range c.Cells {
		props := map[string]interface{}{
			"grid_x": cell.X,
			"grid_y": cell.Y,
			"count":  cell.Count,
		}
		for _, a := range c.Attributes {
			props[a] = cell.Values[a]
		}
		if err := fc.Add(cell.Polygon, props); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

// EncodeCells writes a grid collection to w as a GeoJSON feature collection.
func EncodeCells(w io.Writer, c *grid.Collection) error {
	fc, err := CellFeatures(c)
	if err != nil {
		return err
	}
	return fc.Encode(w)
}

// DecodeCells reads a grid collection written by EncodeCells. The box size
// is taken from the first cell's extent.
func DecodeCells(r io.Reader) (*grid.Collection, error) {
	fc, err := DecodeFeatureCollection(r)
	if err != nil {
		return nil, err
	}
	c := &grid.Collection{CRS: fc.CRSName()}
	attrs := make(map[string]bool)
	for i, f := range fc.Features {
		g, err := fc.Geometry(i)
		if err != nil {
			return nil, err
		}
		poly, ok := g.(geom.Polygon)
		if !ok {
			return nil, fmt.Errorf("geo: feature %d is a %T, not a polygon", i, g)
		}
		cell := &grid.Cell{Polygon: poly, Values: make(map[string]float64)}
		for k, v := range f.Properties {
			n, err := cast.ToFloat64E(v)
			if err != nil {
				continue
			}
			switch k {
			case "grid_x":
				cell.X = int(n)
			case "grid_y":
				cell.Y = int(n)
			case "count":
				cell.Count = int(n)
			default:
				cell.Values[k] = n
				attrs[k] = true
			}
		}
		if b := poly.Bounds(); c.BoxSize == 0 {
			c.BoxSize = b.Max.X - b.Min.X
		}
		c.Cells = append(c.Cells, cell)
	}
	for _, cell := range c.Cells {
		cell.BoxSize = c.BoxSize
	}
	for a := range attrs {
		c.Attributes = append(c.Attributes, a)
	}
	sort.Strings(c.Attributes)
	return c, nil
}
