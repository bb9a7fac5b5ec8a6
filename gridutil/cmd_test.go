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

package gridutil

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"

	"github.com/chuanlongZhou/indian-100-data/geo"
)

const kilns = `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"EPSG:4326"}},"features":[
{"type":"Feature","properties":{"CO2":3},"geometry":{"type":"Point","coordinates":[77.05,28.61]}},
{"type":"Feature","properties":{"CO2":4},"geometry":{"type":"Point","coordinates":[77.06,28.62]}},
{"type":"Feature","properties":{"CO2":5},"geometry":{"type":"Point","coordinates":[77.25,28.61]}},
{"type":"Feature","properties":{"CO2":10},"geometry":{"type":"Point","coordinates":[65.0,28.61]}}]}`

const cityGrid = `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"EPSG:4326"}},"features":[
{"type":"Feature","properties":{"CO2":1},"geometry":{"type":"Polygon","coordinates":[[[77,28],[77.1,28],[77.1,28.1],[77,28.1],[77,28]]]}},
{"type":"Feature","properties":{"CO2":2},"geometry":{"type":"Polygon","coordinates":[[[77.1,28],[77.2,28],[77.2,28.1],[77.1,28.1],[77.1,28]]]}}]}`

func testLog() logrus.FieldLogger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

func tempDir(t *testing.T, files map[string]string) string {
	dir, err := ioutil.TempDir("", "gridutil")
	if err != nil {
		t.Fatal(err)
	}
	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestGridCmd(t *testing.T) {
	dir := tempDir(t, map[string]string{"kilns.geojson": kilns})
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "grid.geojson")

	Cfg.Set("Grid.PointFile", filepath.Join(dir, "kilns.geojson"))
	Cfg.Set("Grid.Attributes", []string{"CO2"})
	Cfg.Set("Grid.CountAttribute", "value")
	Cfg.Set("Grid.BoxSize", 0.1)
	Cfg.Set("Grid.FilterXMin", 68.0)
	Cfg.Set("Grid.FilterXMax", 97.0)
	Cfg.Set("Grid.OutputFile", out)
	Root.SetArgs([]string{"grid"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	c, err := geo.DecodeCells(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Cells) != 2 {
		t.Fatalf("got %d cells, want 2", len(c.Cells))
	}
	if c.CRS != "EPSG:4326" {
		t.Errorf("crs: %q", c.CRS)
	}
	if total := c.Total("CO2"); total != 12 {
		t.Errorf("CO2 total: have %g, want 12", total)
	}
	if total := c.Total("value"); total != 3 {
		t.Errorf("count total: have %g, want 3", total)
	}

	t.Run("plot", func(t *testing.T) {
		png := filepath.Join(dir, "grid.png")
		Cfg.Set("Plot.InputFile", out)
		Cfg.Set("Plot.Attribute", "CO2")
		Cfg.Set("Plot.OutputFile", png)
		Root.SetArgs([]string{"plot"})
		if err := Root.Execute(); err != nil {
			t.Fatal(err)
		}
		b, err := ioutil.ReadFile(png)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.HasPrefix(b, []byte("\x89PNG")) {
			t.Error("output is not a PNG")
		}
	})
}

func TestGrid_shapefile(t *testing.T) {
	dir := tempDir(t, map[string]string{"kilns.geojson": kilns})
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "grid.shp")

	c, err := Grid(testLog(), filepath.Join(dir, "kilns.geojson"), nil, "", 0.5, "", 0, 0, 2, out)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Cells) != 2 {
		t.Errorf("got %d cells, want 2", len(c.Cells))
	}
	if len(c.Attributes) != 1 || c.Attributes[0] != "CO2" {
		t.Errorf("attributes: %v", c.Attributes)
	}
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		if _, err := os.Stat(filepath.Join(dir, "grid"+ext)); err != nil {
			t.Error(err)
		}
	}
}

// manyKilns returns a point GeoJSON file with n kilns in one grid cell whose
// CO2 values are not exactly representable.
func manyKilns(n int) string {
	b := new(strings.Builder)
	b.WriteString(`{"type":"FeatureCollection","features":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",\n")
		}
		v := strconv.FormatFloat(0.1*float64(i%13+1)/3, 'g', -1, 64)
		b.WriteString(`{"type":"Feature","properties":{"CO2":` + v +
			`},"geometry":{"type":"Point","coordinates":[77.05,28.61]}}`)
	}
	b.WriteString("]}")
	return b.String()
}

func TestGrid_workers(t *testing.T) {
	if w := Cfg.GetInt("Grid.Workers"); w != 1 {
		t.Errorf("default workers: have %d, want 1", w)
	}
	dir := tempDir(t, map[string]string{"kilns.geojson": manyKilns(10000)})
	defer os.RemoveAll(dir)
	in := filepath.Join(dir, "kilns.geojson")
	out := filepath.Join(dir, "grid.geojson")

	serial, err := Grid(testLog(), in, []string{"CO2"}, "", 0.1, "", 0, 0, 1, out)
	if err != nil {
		t.Fatal(err)
	}
	if again, err := Grid(testLog(), in, []string{"CO2"}, "", 0.1, "", 0, 0, 1, out); err != nil {
		t.Fatal(err)
	} else if !reflect.DeepEqual(serial, again) {
		t.Errorf("serial results differ:\n%v", pretty.Diff(serial, again))
	}

	parallel, err := Grid(testLog(), in, []string{"CO2"}, "", 0.1, "", 0, 0, 2, out)
	if err != nil {
		t.Fatal(err)
	}
	for _, workers := range []int{0, 3, 8} {
		c, err := Grid(testLog(), in, []string{"CO2"}, "", 0.1, "", 0, 0, workers, out)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(c, parallel) {
			t.Errorf("%d workers: results differ:\n%v", workers, pretty.Diff(c, parallel))
		}
	}
}

func TestGrid_badOutputDir(t *testing.T) {
	_, err := Grid(testLog(), "kilns.geojson", nil, "", 0.1, "", 0, 0, 0, "/no/such/dir/grid.geojson")
	if err == nil {
		t.Error("expected error")
	}
}

func TestCitiesCmd(t *testing.T) {
	dir := tempDir(t, map[string]string{
		"city_grid_map/delhi.geojson": cityGrid,
		"city_mapping.json":           `{"delhi": {"province": "Delhi", "region": "North"}}`,
		"boundary/delhi.geojson":      cityGrid,
	})
	defer os.RemoveAll(dir)

	Cfg.Set("City.GridDir", filepath.Join(dir, "city_grid_map"))
	Cfg.Set("City.MappingFile", filepath.Join(dir, "city_mapping.json"))
	Cfg.Set("City.CenterFile", filepath.Join(dir, "city_center.geojson"))
	Cfg.Set("City.BoxFile", filepath.Join(dir, "city_box.geojson"))
	Cfg.Set("City.FigureDir", filepath.Join(dir, "fig"))
	Cfg.Set("City.BoundaryDir", filepath.Join(dir, "boundary"))
	defer Cfg.Set("City.BoundaryDir", "")
	Root.SetArgs([]string{"cities"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"city_center.geojson", "city_box.geojson", "fig/delhi.png"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Error(err)
		}
	}
	b, err := ioutil.ReadFile(filepath.Join(dir, "city_center.geojson"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"province":"Delhi"`) {
		t.Errorf("centers: %s", b)
	}

	t.Run("bad boundary", func(t *testing.T) {
		path := filepath.Join(dir, "boundary", "delhi.geojson")
		if err := ioutil.WriteFile(path, []byte("not geojson"), 0644); err != nil {
			t.Fatal(err)
		}
		Root.SetArgs([]string{"cities"})
		if err := Root.Execute(); err == nil {
			t.Error("expected error")
		}
	})
}

func TestSynthCmd(t *testing.T) {
	dir := tempDir(t, map[string]string{"city_grid_map/delhi.geojson": cityGrid})
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "population.geojson")
	Cfg.Set("City.GridDir", filepath.Join(dir, "city_grid_map"))
	Cfg.Set("Synth.OutputFile", out)
	Cfg.Set("Synth.Seed", 7)
	Root.SetArgs([]string{"synth"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	fc, err := geo.DecodeFeatureCollection(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Properties["city_name"] != "delhi" {
		t.Errorf("features: %+v", fc.Features)
	}
}

func TestVersionCmd(t *testing.T) {
	b := new(bytes.Buffer)
	Root.SetOutput(b)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "citygrid v" + Version; !strings.Contains(b.String(), want) {
		t.Errorf("have %q, want %q", b.String(), want)
	}
}

func TestConfigFile(t *testing.T) {
	dir := tempDir(t, map[string]string{
		"citygrid.toml": "loglevel = \"warn\"\n[Plot]\nWidth = 4.5\n",
	})
	defer os.RemoveAll(dir)
	Cfg.Set("config", filepath.Join(dir, "citygrid.toml"))
	defer Cfg.Set("config", "")
	if err := setConfig(); err != nil {
		t.Fatal(err)
	}
	if w := Cfg.GetFloat64("Plot.Width"); w != 4.5 {
		t.Errorf("width: have %g, want 4.5", w)
	}
	if logrus.GetLevel() != logrus.WarnLevel {
		t.Errorf("log level: %v", logrus.GetLevel())
	}

	t.Run("bad log level", func(t *testing.T) {
		Cfg.Set("loglevel", "loud")
		defer Cfg.Set("loglevel", "info")
		if err := setConfig(); err == nil {
			t.Error("expected error")
		}
	})
}
