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

package hash

import (
	"testing"

	"github.com/ctessum/geom"
)

type cell struct {
	X, Y   int
	Values map[string]float64
}

type shapes struct {
	Geoms []geom.Geom
}

func TestHash(t *testing.T) {
	a := []cell{{X: 1, Y: 2, Values: map[string]float64{"CO2": 3, "PM25": 4}}}
	b := []cell{{X: 1, Y: 2, Values: map[string]float64{"PM25": 4, "CO2": 3}}}
	c := []cell{{X: 1, Y: 2, Values: map[string]float64{"CO2": 3, "PM25": 5}}}
	if Hash(a) != Hash(b) {
		t.Error("equal values have different hashes")
	}
	if Hash(a) == Hash(c) {
		t.Error("different values have the same hash")
	}
	if len(Hash(a)) != 32 {
		t.Errorf("hash %q is not 128 bits", Hash(a))
	}

	t.Run("interfaces", func(t *testing.T) {
		s1 := shapes{Geoms: []geom.Geom{geom.Point{X: 1, Y: 2}}}
		s2 := shapes{Geoms: []geom.Geom{geom.Point{X: 1, Y: 2}}}
		s3 := shapes{Geoms: []geom.Geom{geom.Point{X: 2, Y: 1}}}
		if Hash(s1) != Hash(s2) {
			t.Error("equal values have different hashes")
		}
		if Hash(s1) == Hash(s3) {
			t.Error("different values have the same hash")
		}
	})
}
