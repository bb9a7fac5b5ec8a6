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

package city

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/chuanlongZhou/indian-100-data/geo"
)

// Default population range for synthetic city centers.
const (
	DefaultPopMin = 100000
	DefaultPopMax = 1000000
)

// Synthesize creates a test data set with one point per city grid file in
// dir. Each point is at the middle of the city's total bounds in the file's
// reference system, transformed to s.OutputSR, and has a
// population drawn uniformly from the integers in [popMin, popMax).
// The same seed always gives the same populations.
func (s *Summarizer) Synthesize(dir string, popMin, popMax int, seed uint64) (*geo.FeatureCollection, error) {
	if popMax <= popMin {
		return nil, fmt.Errorf("city: population range [%d, %d) is empty", popMin, popMax)
	}
	files, err := cityFiles(dir)
	if err != nil {
		return nil, err
	}
	pop := distuv.Uniform{
		Min: float64(popMin),
		Max: float64(popMax),
		Src: rand.NewSource(seed),
	}

	var fc *geo.FeatureCollection
	for _, f := range files {
		name := cityName(f)
		cells, crs, err := readPolygons(f)
		if err != nil {
			return nil, err
		}
		if len(cells) == 0 {
			return nil, fmt.Errorf("city: %s has no grid cells", name)
		}
		b := cells[0].Bounds().Copy()
		for _, c := range cells[1:] {
			b.Extend(c.Bounds())
		}
		// The center is taken in the file's own reference system and
		// transformed afterwards.
		var center geom.Geom = geom.Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
		ct, crs, err := s.transform(crs)
		if err != nil {
			return nil, fmt.Errorf("city: %s: %w", f, err)
		}
		if ct != nil {
			if center, err = center.Transform(ct); err != nil {
				return nil, fmt.Errorf("city: %s: %w", f, err)
			}
		}
		if fc == nil {
			fc = geo.NewFeatureCollection(crs)
		}
		p := int(math.Floor(pop.Rand()))
		if p >= popMax {
			p = popMax - 1
		}
		if err := fc.Add(center, map[string]interface{}{
			"city_name":  name,
			"population": p,
		}); err != nil {
			return nil, err
		}
		s.log().WithFields(logrus.Fields{
			"city":       name,
			"population": p,
		}).Debug("synthesized city")
	}
	if fc == nil {
		fc = geo.NewFeatureCollection(s.OutputSR)
	}
	return fc, nil
}
