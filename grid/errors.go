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

package grid

import (
	"fmt"

	"github.com/ctessum/geom"
)

// MissingAttributeError is returned when a point does not define one of the
// attributes being aggregated.
type MissingAttributeError struct {
	// Index is the position of the offending point in the input.
	Index     int
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("grid: point %d is missing attribute %q", e.Index, e.Attribute)
}

// InvalidBoxSizeError is returned when the grid box size is not a positive,
// finite number.
type InvalidBoxSizeError struct {
	BoxSize float64
}

func (e *InvalidBoxSizeError) Error() string {
	return fmt.Sprintf("grid: box size must be positive, got %g", e.BoxSize)
}

// InvalidCoordinateError is returned for points whose coordinates are not
// finite or are too large to be assigned a grid index.
type InvalidCoordinateError struct {
	// Index is the position of the offending point in the input.
	Index int
	Point geom.Point
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("grid: point %d has invalid coordinates (%g, %g)",
		e.Index, e.Point.X, e.Point.Y)
}
