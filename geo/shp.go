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

package geo

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spf13/cast"

	"github.com/chuanlongZhou/indian-100-data/grid"
)

// dbfNameLength is the maximum length of a dBASE field name.
const dbfNameLength = 10

// shpFieldName truncates an attribute name to fit in a dBASE header.
func shpFieldName(name string) string {
	if len(name) > dbfNameLength {
		return name[:dbfNameLength]
	}
	return name
}

// WriteCellShapefile writes a grid collection to a polygon shapefile at path,
// replacing any existing file. A .prj file is written as well when the
// collection's coordinate reference system is known.
func WriteCellShapefile(path string, c *grid.Collection) error {
	base := strings.TrimSuffix(path, ".shp")
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(base + ext)
	}
	fields := []goshp.Field{
		goshp.NumberField("grid_x", 10),
		goshp.NumberField("grid_y", 10),
		goshp.NumberField("count", 10),
	}
	seen := map[string]string{"grid_x": "", "grid_y": "", "count": ""}
	for _, a := range c.Attributes {
		n := shpFieldName(a)
		if prev, ok := seen[n]; ok {
			return fmt.Errorf("geo: attribute %q and %q have the same shapefile field name %q", a, prev, n)
		}
		seen[n] = a
		fields = append(fields, goshp.FloatField(n, 24, 8))
	}
	e, err := shp.NewEncoderFromFields(base+".shp", goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("geo: creating shapefile: %w", err)
	}
	for _, cell := range c.Cells {
		data := []interface{}{cell.X, cell.Y, cell.Count}
		for _, a := range c.Attributes {
			data = append(data, cell.Values[a])
		}
		if err := e.EncodeFields(cell.Polygon, data...); err != nil {
			e.Close()
			return fmt.Errorf("geo: writing shapefile: %w", err)
		}
	}
	e.Close()
	if wkt, ok := prjWKT(c.CRS); ok {
		if err := ioutil.WriteFile(base+".prj", []byte(wkt), 0644); err != nil {
			return fmt.Errorf("geo: writing projection file: %w", err)
		}
	}
	return nil
}

// ReadPointShapefile reads point features from the shapefile at path.
// It works like DecodePoints, except that attributes must be named
// explicitly. The CRS is the contents of the .prj file, if there is one.
func ReadPointShapefile(path string, attributes []string, countAttribute string) (*PointSet, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("geo: opening shapefile: %w", err)
	}
	defer d.Close()

	ps := new(PointSet)
	if b, err := ioutil.ReadFile(strings.TrimSuffix(path, ".shp") + ".prj"); err == nil {
		ps.CRS = strings.TrimSpace(string(b))
	}

	available := make(map[string]bool)
	for _, f := range d.Fields() {
		available[strings.ToLower(string(bytes.Trim(f.Name[:], "\x00")))] = true
	}
	var present []string
	for _, a := range attributes {
		if available[strings.ToLower(a)] {
			present = append(present, a)
		}
	}

	for i := 0; ; i++ {
		g, fields, more := d.DecodeRowFields(present...)
		if !more {
			break
		}
		p, ok := g.(geom.Point)
		if !ok {
			return nil, fmt.Errorf("geo: shapefile record %d is a %T, not a point", i, g)
		}
		vals := make(map[string]float64, len(fields)+1)
		for k, s := range fields {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			v, err := cast.ToFloat64E(s)
			if err != nil {
				return nil, fmt.Errorf("geo: shapefile record %d field %q: %w", i, k, err)
			}
			vals[k] = v
		}
		if countAttribute != "" {
			vals[countAttribute] = 1
		}
		ps.Points = append(ps.Points, grid.Point{Point: p, Values: vals})
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("geo: reading shapefile: %w", err)
	}
	return ps, nil
}
