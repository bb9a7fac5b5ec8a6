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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot/vg"

	"github.com/chuanlongZhou/indian-100-data/city"
	"github.com/chuanlongZhou/indian-100-data/geo"
	"github.com/chuanlongZhou/indian-100-data/grid"
	"github.com/chuanlongZhou/indian-100-data/internal/hash"
	"github.com/chuanlongZhou/indian-100-data/render"
)

func isShapefile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".shp")
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists.
func checkOutputFile(f string) error {
	if f == "" {
		return fmt.Errorf("citygrid: output file is not specified")
	}
	if _, err := os.Stat(filepath.Dir(f)); err != nil {
		return fmt.Errorf("citygrid: the output directory doesn't exist: %w", err)
	}
	return nil
}

// readPoints reads the points in a GeoJSON file or shapefile.
func readPoints(path string, attributes []string, countAttribute string) (*geo.PointSet, error) {
	if isShapefile(path) {
		return geo.ReadPointShapefile(path, attributes, countAttribute)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("citygrid: %w", err)
	}
	defer f.Close()
	return geo.DecodePoints(f, attributes, countAttribute)
}

// writeCells writes a grid collection as a shapefile or GeoJSON file,
// depending on the extension of path.
func writeCells(path string, c *grid.Collection) error {
	if isShapefile(path) {
		return geo.WriteCellShapefile(path, c)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("citygrid: %w", err)
	}
	if err := geo.EncodeCells(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeFeatures(path string, write func(io.Writer) error) error {
	if err := checkOutputFile(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("citygrid: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Grid reads the points in pointFile, sums the given attributes onto a
// grid with cells of edge length boxSize, and writes the result to
// outputFile. If countAttribute is not empty it is added to attributes and
// set to 1 for every point. If xmax > xmin, only points with
// xmin < X < xmax are gridded. If crs is not empty it replaces the
// reference system recorded in pointFile.
func Grid(log logrus.FieldLogger, pointFile string, attributes []string, countAttribute string,
	boxSize float64, crs string, xmin, xmax float64, workers int, outputFile string) (*grid.Collection, error) {

	if err := checkOutputFile(outputFile); err != nil {
		return nil, err
	}
	if countAttribute != "" && len(attributes) > 0 {
		var found bool
		for _, a := range attributes {
			found = found || a == countAttribute
		}
		if !found {
			attributes = append(attributes, countAttribute)
		}
	}
	ps, err := readPoints(pointFile, attributes, countAttribute)
	if err != nil {
		return nil, err
	}
	if crs != "" {
		ps.CRS = crs
	}
	points := ps.Points
	if xmax > xmin {
		points = geo.FilterX(points, xmin, xmax)
		log.WithFields(logrus.Fields{
			"kept":    len(points),
			"dropped": len(ps.Points) - len(points),
		}).Info("filtered points by X coordinate")
	}
	if len(attributes) == 0 && len(points) > 0 {
		for a := range points[0].Values {
			attributes = append(attributes, a)
		}
		sort.Strings(attributes)
	}
	log.WithFields(logrus.Fields{
		"file":       pointFile,
		"points":     len(points),
		"attributes": attributes,
		"box_size":   boxSize,
	}).Info("gridding points")

	var cells []*grid.Cell
	if workers == 1 {
		cells, err = grid.Aggregate(points, attributes, boxSize)
	} else {
		cells, err = grid.AggregateParallel(points, attributes, boxSize, workers)
	}
	if err != nil {
		return nil, err
	}
	c := grid.NewCollection(ps.CRS, boxSize, attributes, cells)
	if err := writeCells(outputFile, c); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"file":  outputFile,
		"cells": len(cells),
		"hash":  hash.Hash(c),
	}).Info("wrote grid")
	return c, nil
}

// Cities summarizes the city grid maps in gridDir and writes the city
// centers to centerFile and the city bounding boxes to boxFile. If
// figureDir is not empty, a map of each city is written there, including the
// city's boundary from boundaryDir when boundaryDir is not empty.
func Cities(log logrus.FieldLogger, gridDir, mappingFile, outputSR, centerFile, boxFile, figureDir, boundaryDir string,
	width vg.Length) ([]*city.Summary, error) {

	mapping := make(map[string]city.Location)
	if mappingFile != "" {
		var err error
		if mapping, err = city.ReadMappingFile(mappingFile); err != nil {
			return nil, err
		}
	}
	s := &city.Summarizer{Mapping: mapping, OutputSR: outputSR, Log: log}
	summaries, err := s.SummarizeDir(gridDir)
	if err != nil {
		return nil, err
	}
	if err := writeFeatures(centerFile, func(w io.Writer) error { return city.WriteCenters(w, summaries) }); err != nil {
		return nil, err
	}
	if err := writeFeatures(boxFile, func(w io.Writer) error { return city.WriteBoxes(w, summaries) }); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"centers": centerFile,
		"boxes":   boxFile,
		"hash":    hash.Hash(summaries),
	}).Info("wrote city summaries")

	if figureDir == "" {
		return summaries, nil
	}
	if err := os.MkdirAll(figureDir, 0755); err != nil {
		return nil, fmt.Errorf("citygrid: %w", err)
	}
	for _, sum := range summaries {
		var boundary []geom.Polygonal
		if boundaryDir != "" {
			if boundary, err = s.ReadBoundary(boundaryDir, sum.City); err != nil {
				return nil, err
			}
		}
		path := filepath.Join(figureDir, sum.City+".png")
		err = writeFeatures(path, func(w io.Writer) error { return render.City(w, sum, sum.Cells, boundary, width) })
		if err != nil {
			return nil, err
		}
		log.WithField("file", path).Debug("wrote city map")
	}
	return summaries, nil
}

// Synth writes a synthetic population dataset for the cities in gridDir
// to outputFile.
func Synth(log logrus.FieldLogger, gridDir, outputSR, outputFile string, seed uint64, popMin, popMax int) (*geo.FeatureCollection, error) {
	s := &city.Summarizer{OutputSR: outputSR, Log: log}
	fc, err := s.Synthesize(gridDir, popMin, popMax, seed)
	if err != nil {
		return nil, err
	}
	if err := writeFeatures(outputFile, fc.Encode); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"file":   outputFile,
		"cities": len(fc.Features),
		"hash":   hash.Hash(fc),
	}).Info("wrote synthetic populations")
	return fc, nil
}

// Plot draws the cells in the GeoJSON grid file inputFile, colored by
// attribute, and writes the image to outputFile as a PNG.
func Plot(log logrus.FieldLogger, inputFile, attribute, outputFile string, width vg.Length) error {
	f, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("citygrid: %w", err)
	}
	defer f.Close()
	c, err := geo.DecodeCells(f)
	if err != nil {
		return err
	}
	err = writeFeatures(outputFile, func(w io.Writer) error {
		return render.Grid(w, c.Cells, attribute, width)
	})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"file":      outputFile,
		"attribute": attribute,
		"cells":     len(c.Cells),
	}).Info("wrote grid map")
	return nil
}
