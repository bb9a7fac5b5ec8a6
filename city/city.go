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

// Package city summarizes per-city grid maps into city centers and
// bounding boxes.
package city

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"

	"github.com/chuanlongZhou/indian-100-data/geo"
)

// Unknown is used as the province and region of cities that are not in
// the mapping.
const Unknown = "Unknown"

// Location is the administrative location of a city.
type Location struct {
	Province string `json:"province" toml:"province"`
	Region   string `json:"region" toml:"region"`
}

// ReadMapping reads a city-to-location mapping in the form
// {"<city>": {"province": "...", "region": "..."}}.
func ReadMapping(r io.Reader) (map[string]Location, error) {
	m := make(map[string]Location)
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("city: reading mapping: %w", err)
	}
	return m, nil
}

// ReadMappingFile reads a city-to-location mapping from a JSON file or,
// if the file name ends in ".toml", a TOML file with one table per city.
func ReadMappingFile(path string) (map[string]Location, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("city: %w", err)
	}
	defer f.Close()
	if !strings.EqualFold(filepath.Ext(path), ".toml") {
		return ReadMapping(f)
	}
	m := make(map[string]Location)
	if _, err := toml.DecodeReader(f, &m); err != nil {
		return nil, fmt.Errorf("city: reading mapping: %w", err)
	}
	return m, nil
}

// Summary holds the geometric summary of one city.
type Summary struct {
	City string
	Location

	// CRS is the reference system of the geometries below.
	CRS string

	// Center is the centroid of the union of the city's grid cells.
	Center geom.Point

	// Box is the envelope of the union of the city's grid cells.
	Box geom.Polygon

	// Cells are the city's grid cells.
	Cells []geom.Polygonal
}

// Summarizer summarizes directories of city grid maps.
type Summarizer struct {
	// Mapping gives the province and region of each city.
	Mapping map[string]Location

	// OutputSR, if not empty, is the reference system that geometries are
	// transformed to. Files without a CRS are assumed to already be in it.
	OutputSR string

	Log logrus.FieldLogger
}

func (s *Summarizer) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// cityFiles returns the GeoJSON files in dir, sorted by name.
func cityFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.geojson"))
	if err != nil {
		return nil, fmt.Errorf("city: listing %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// cityName returns the part of the file name before the first ".".
func cityName(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// readPolygons reads the polygons in a city grid or boundary file in the
// file's own reference system, which is also returned.
func readPolygons(path string) ([]geom.Polygonal, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("city: %w", err)
	}
	defer f.Close()
	fc, err := geo.DecodeFeatureCollection(f)
	if err != nil {
		return nil, "", fmt.Errorf("city: %s: %w", path, err)
	}
	polys := make([]geom.Polygonal, 0, len(fc.Features))
	for i := range fc.Features {
		g, err := fc.Geometry(i)
		if err != nil {
			return nil, "", fmt.Errorf("city: %s: %w", path, err)
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			return nil, "", fmt.Errorf("city: %s: feature %d is a %T, not a polygon", path, i, g)
		}
		polys = append(polys, p)
	}
	return polys, fc.CRSName(), nil
}

// transform returns the transformer from crs to s.OutputSR and the
// reference system of the transformed geometries. The transformer is nil
// if no transform is needed.
func (s *Summarizer) transform(crs string) (proj.Transformer, string, error) {
	if s.OutputSR == "" {
		return nil, crs, nil
	}
	if crs == "" || geo.SameCRS(crs, s.OutputSR) {
		return nil, s.OutputSR, nil
	}
	inSR, err := geo.ResolveSR(crs)
	if err != nil {
		return nil, "", err
	}
	outSR, err := geo.ResolveSR(s.OutputSR)
	if err != nil {
		return nil, "", err
	}
	ct, err := inSR.NewTransform(outSR)
	if err != nil {
		return nil, "", err
	}
	return ct, s.OutputSR, nil
}

// readCells reads the polygons in a city grid or boundary file and
// transforms them to s.OutputSR.
func (s *Summarizer) readCells(path string) ([]geom.Polygonal, string, error) {
	polys, crs, err := readPolygons(path)
	if err != nil {
		return nil, "", err
	}
	ct, crs, err := s.transform(crs)
	if err != nil {
		return nil, "", fmt.Errorf("city: %s: %w", path, err)
	}
	if ct == nil {
		return polys, crs, nil
	}
	var ok bool
	for i, p := range polys {
		g, err := p.Transform(ct)
		if err != nil {
			return nil, "", fmt.Errorf("city: %s: feature %d: %w", path, i, err)
		}
		if polys[i], ok = g.(geom.Polygonal); !ok {
			return nil, "", fmt.Errorf("city: %s: feature %d transformed to a %T", path, i, g)
		}
	}
	return polys, crs, nil
}

// ReadBoundary reads the boundary polygons of the named city from
// dir/<city>.geojson and transforms them to s.OutputSR. It returns no
// polygons and no error if the file does not exist.
func (s *Summarizer) ReadBoundary(dir, name string) ([]geom.Polygonal, error) {
	path := filepath.Join(dir, name+".geojson")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.log().WithField("city", name).Debug("no boundary file")
		return nil, nil
	}
	polys, _, err := s.readCells(path)
	return polys, err
}

// Summarize computes the summary of the city with the given name and grid
// cells.
func (s *Summarizer) Summarize(name, crs string, cells []geom.Polygonal) (*Summary, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("city: %s has no grid cells", name)
	}
	var union geom.Polygonal = cells[0]
	for _, c := range cells[1:] {
		union = union.Union(c)
	}
	b := union.Bounds()

	loc, ok := s.Mapping[name]
	if !ok || loc.Province == "" || loc.Region == "" {
		s.log().WithField("city", name).Warn("could not find province and region")
		if loc.Province == "" {
			loc.Province = Unknown
		}
		if loc.Region == "" {
			loc.Region = Unknown
		}
	}
	return &Summary{
		City:     name,
		Location: loc,
		CRS:      crs,
		Center:   union.Centroid(),
		Box: geom.Polygon{{
			{X: b.Min.X, Y: b.Min.Y},
			{X: b.Max.X, Y: b.Min.Y},
			{X: b.Max.X, Y: b.Max.Y},
			{X: b.Min.X, Y: b.Max.Y},
			{X: b.Min.X, Y: b.Min.Y},
		}},
		Cells: cells,
	}, nil
}

// SummarizeDir summarizes every city grid file (*.geojson) in dir. The
// city name is the part of the file name before the first ".".
func (s *Summarizer) SummarizeDir(dir string) ([]*Summary, error) {
	files, err := cityFiles(dir)
	if err != nil {
		return nil, err
	}
	summaries := make([]*Summary, 0, len(files))
	for _, f := range files {
		name := cityName(f)
		cells, crs, err := s.readCells(f)
		if err != nil {
			return nil, err
		}
		sum, err := s.Summarize(name, crs, cells)
		if err != nil {
			return nil, err
		}
		s.log().WithFields(logrus.Fields{
			"city":  name,
			"cells": len(cells),
		}).Debug("summarized city")
		summaries = append(summaries, sum)
	}
	s.log().WithField("cities", len(summaries)).Info("summarized city grid maps")
	return summaries, nil
}

func summaryFeatures(summaries []*Summary, g func(*Summary) geom.Geom) (*geo.FeatureCollection, error) {
	var crs string
	if len(summaries) > 0 {
		crs = summaries[0].CRS
	}
	fc := geo.NewFeatureCollection(crs)
	for _, s := range summaries {
		err := fc.Add(g(s), map[string]interface{}{
			"city_name": s.City,
			"province":  s.Province,
			"region":    s.Region,
		})
		if err != nil {
			return nil, err
		}
	}
	return fc, nil
}

// WriteCenters writes the city centers to w as a GeoJSON point collection.
func WriteCenters(w io.Writer, summaries []*Summary) error {
	fc, err := summaryFeatures(summaries, func(s *Summary) geom.Geom { return s.Center })
	if err != nil {
		return err
	}
	return fc.Encode(w)
}

// WriteBoxes writes the city bounding boxes to w as a GeoJSON polygon
// collection.
func WriteBoxes(w io.Writer, summaries []*Summary) error {
	fc, err := summaryFeatures(summaries, func(s *Summary) geom.Geom { return s.Box })
	if err != nil {
		return err
	}
	return fc.Encode(w)
}
