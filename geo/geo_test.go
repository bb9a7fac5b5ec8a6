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
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/kr/pretty"

	"github.com/chuanlongZhou/indian-100-data/grid"
)

const kilnGeoJSON = `{
"type": "FeatureCollection",
"crs": { "type": "name", "properties": { "name": "urn:ogc:def:crs:OGC:1.3:CRS84" } },
"features": [
{ "type": "Feature", "properties": { "CO2": 3, "PM25": "0.5", "name": "a" }, "geometry": { "type": "Point", "coordinates": [ 77.05, 28.61 ] } },
{ "type": "Feature", "properties": { "CO2": 4, "PM25": 0.25, "name": "b" }, "geometry": { "type": "Point", "coordinates": [ 77.09, 28.69 ] } },
{ "type": "Feature", "properties": { "CO2": 10, "PM25": 1, "name": "c" }, "geometry": { "type": "Point", "coordinates": [ 65.0, 28.65 ] } }
]
}`

func TestDecodePoints(t *testing.T) {
	ps, err := DecodePoints(strings.NewReader(kilnGeoJSON), []string{"CO2", "PM25"}, "value")
	if err != nil {
		t.Fatal(err)
	}
	if ps.CRS != "urn:ogc:def:crs:OGC:1.3:CRS84" {
		t.Errorf("crs: %q", ps.CRS)
	}
	want := []grid.Point{
		{Point: geom.Point{X: 77.05, Y: 28.61}, Values: map[string]float64{"CO2": 3, "PM25": 0.5, "value": 1}},
		{Point: geom.Point{X: 77.09, Y: 28.69}, Values: map[string]float64{"CO2": 4, "PM25": 0.25, "value": 1}},
		{Point: geom.Point{X: 65.0, Y: 28.65}, Values: map[string]float64{"CO2": 10, "PM25": 1, "value": 1}},
	}
	if !reflect.DeepEqual(ps.Points, want) {
		t.Errorf("points don't match:\n%v", pretty.Diff(ps.Points, want))
	}

	t.Run("all numeric", func(t *testing.T) {
		ps, err := DecodePoints(strings.NewReader(kilnGeoJSON), nil, "")
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := ps.Points[0].Values["name"]; ok {
			t.Error("string property decoded as a value")
		}
		if len(ps.Points[0].Values) != 2 {
			t.Errorf("values: %v", ps.Points[0].Values)
		}
	})
	t.Run("not numeric", func(t *testing.T) {
		_, err := DecodePoints(strings.NewReader(kilnGeoJSON), []string{"name"}, "")
		if err == nil {
			t.Error("expected error")
		}
	})
	t.Run("not points", func(t *testing.T) {
		_, err := DecodePoints(strings.NewReader(`{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`), nil, "")
		if err == nil {
			t.Error("expected error")
		}
	})
	t.Run("missing attribute", func(t *testing.T) {
		ps, err := DecodePoints(strings.NewReader(kilnGeoJSON), []string{"CO2", "NOx"}, "")
		if err != nil {
			t.Fatal(err)
		}
		_, err = grid.Aggregate(ps.Points, []string{"CO2", "NOx"}, 0.1)
		var e *grid.MissingAttributeError
		if !errors.As(err, &e) {
			t.Errorf("got %v, want MissingAttributeError", err)
		}
	})
}

func TestFilterX(t *testing.T) {
	ps, err := DecodePoints(strings.NewReader(kilnGeoJSON), []string{"CO2"}, "")
	if err != nil {
		t.Fatal(err)
	}
	in := FilterX(ps.Points, 68, 97)
	if len(in) != 2 {
		t.Errorf("got %d points, want 2", len(in))
	}
}

func TestEncodeCells_roundTrip(t *testing.T) {
	ps, err := DecodePoints(strings.NewReader(kilnGeoJSON), []string{"CO2", "PM25"}, "")
	if err != nil {
		t.Fatal(err)
	}
	cells, err := grid.Aggregate(ps.Points, []string{"CO2", "PM25"}, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	c := &grid.Collection{CRS: ps.CRS, BoxSize: 0.5, Attributes: []string{"CO2", "PM25"}, Cells: cells}
	b := new(bytes.Buffer)
	if err := EncodeCells(b, c); err != nil {
		t.Fatal(err)
	}
	c2, err := DecodeCells(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c, c2) {
		t.Errorf("round trip doesn't match:\n%v", pretty.Diff(c, c2))
	}
}

func TestResolveSR(t *testing.T) {
	for _, id := range []string{
		"EPSG:4326",
		"epsg:4326",
		"urn:ogc:def:crs:OGC:1.3:CRS84",
		"urn:ogc:def:crs:EPSG::32643",
		"+proj=longlat +datum=WGS84 +no_defs",
	} {
		if _, err := ResolveSR(id); err != nil {
			t.Errorf("%s: %v", id, err)
		}
	}
	if _, err := ResolveSR("not a projection"); err == nil {
		t.Error("expected error for unknown CRS")
	}
	if _, err := ResolveSR(""); err == nil {
		t.Error("expected error for empty CRS")
	}
}

func TestWriteCellShapefile(t *testing.T) {
	dir, err := ioutil.TempDir("", "geo")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	points := []grid.Point{
		{Point: geom.Point{X: 77.05, Y: 28.61}, Values: map[string]float64{"CO2": 3, "PM25_annual": 0.5}},
		{Point: geom.Point{X: 77.06, Y: 28.62}, Values: map[string]float64{"CO2": 4, "PM25_annual": 0.25}},
	}
	attrs := []string{"CO2", "PM25_annual"}
	cells, err := grid.Aggregate(points, attrs, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "grid.shp")
	c := &grid.Collection{CRS: WGS84, BoxSize: 0.1, Attributes: attrs, Cells: cells}
	if err := WriteCellShapefile(path, c); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "grid.prj")); err != nil {
		t.Errorf("missing .prj file: %v", err)
	}

	d, err := shp.NewDecoder(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	var n int
	for {
		g, fields, more := d.DecodeRowFields("grid_x", "grid_y", "count", "CO2", "PM25_annua")
		if !more {
			break
		}
		n++
		if _, ok := g.(geom.Polygonal); !ok {
			t.Errorf("geometry is %T", g)
		}
		want := map[string]float64{"grid_x": 770, "grid_y": 286, "count": 2, "CO2": 7, "PM25_annua": 0.75}
		for k, w := range want {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[k]), 64)
			if err != nil {
				t.Fatal(err)
			}
			if v != w {
				t.Errorf("%s: have %g, want %g", k, v, w)
			}
		}
	}
	if err := d.Error(); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("got %d records, want 1", n)
	}

	t.Run("field name collision", func(t *testing.T) {
		attrs := []string{"PM25_annual_max", "PM25_annual_mean"}
		c := &grid.Collection{CRS: WGS84, BoxSize: 0.1, Attributes: attrs}
		err := WriteCellShapefile(filepath.Join(dir, "collision.shp"), c)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), `"PM25_annua"`) {
			t.Errorf("error doesn't name the field: %v", err)
		}
	})
}

func TestReadPointShapefile(t *testing.T) {
	dir, err := ioutil.TempDir("", "geo")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "kilns.shp")

	e, err := shp.NewEncoderFromFields(path, goshp.POINT, goshp.FloatField("CO2", 24, 8))
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range []geom.Point{{X: 77.05, Y: 28.61}, {X: 80.2, Y: 13.1}} {
		if err := e.EncodeFields(p, float64(i+1)); err != nil {
			t.Fatal(err)
		}
	}
	e.Close()

	ps, err := ReadPointShapefile(path, []string{"CO2", "PM25"}, "value")
	if err != nil {
		t.Fatal(err)
	}
	want := []grid.Point{
		{Point: geom.Point{X: 77.05, Y: 28.61}, Values: map[string]float64{"CO2": 1, "value": 1}},
		{Point: geom.Point{X: 80.2, Y: 13.1}, Values: map[string]float64{"CO2": 2, "value": 1}},
	}
	if !reflect.DeepEqual(ps.Points, want) {
		t.Errorf("points don't match:\n%v", pretty.Diff(ps.Points, want))
	}
}
