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
	"runtime"
	"sync"
)

// Aggregate converts points into grid cells with edge length boxSize.
// The value of each attribute in a cell is the sum of that attribute over
// all points inside the cell. Only cells containing at least one point are
// returned, ordered by ascending X and then Y index.
//
// Every point must define every attribute; otherwise a
// *MissingAttributeError is returned and no cells are created.
func Aggregate(points []Point, attributes []string, boxSize float64) ([]*Cell, error) {
	a, err := NewAccumulator(attributes, boxSize)
	if err != nil {
		return nil, err
	}
	if err := a.Add(points...); err != nil {
		return nil, err
	}
	return a.Cells(), nil
}

// chunkSize is the number of points summed by each partial accumulator in
// AggregateParallel.
const chunkSize = 4096

// AggregateParallel is the same as Aggregate, but sums fixed-size chunks of
// the points with the given number of workers and merges the chunk sums in
// input order. If workers < 1, runtime.GOMAXPROCS(0) workers are used.
// The result does not depend on the number of workers. It equals the result
// of Aggregate when there are no more than chunkSize points or when the sums
// are exact; otherwise it can differ by floating point rounding.
func AggregateParallel(points []Point, attributes []string, boxSize float64, workers int) ([]*Cell, error) {
	if err := checkBoxSize(boxSize); err != nil {
		return nil, err
	}
	nchunks := (len(points) + chunkSize - 1) / chunkSize
	if nchunks <= 1 {
		return Aggregate(points, attributes, boxSize)
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > nchunks {
		workers = nchunks
	}
	partials := make([]*Accumulator, nchunks)
	errs := make([]error, nchunks)
	for i := range partials {
		var err error
		partials[i], err = NewAccumulator(attributes, boxSize)
		if err != nil {
			return nil, err
		}
	}
	chunks := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range chunks {
				lo := i * chunkSize
				hi := lo + chunkSize
				if hi > len(points) {
					hi = len(points)
				}
				errs[i] = partials[i].add(lo, points[lo:hi])
			}
		}()
	}
	for i := 0; i < nchunks; i++ {
		chunks <- i
	}
	close(chunks)
	wg.Wait()
	// Report the error for the earliest point.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for _, p := range partials[1:] {
		if err := partials[0].Merge(p); err != nil {
			return nil, err
		}
	}
	return partials[0].Cells(), nil
}

// Accumulator holds partial per-cell sums. Accumulators with the same
// box size can be merged in any order.
type Accumulator struct {
	boxSize    float64
	attributes []string
	cells      map[Index]*Cell
	n          int
}

// NewAccumulator creates an empty accumulator for the given attributes and
// grid box size.
func NewAccumulator(attributes []string, boxSize float64) (*Accumulator, error) {
	if err := checkBoxSize(boxSize); err != nil {
		return nil, err
	}
	return &Accumulator{
		boxSize:    boxSize,
		attributes: attributeSet(attributes),
		cells:      make(map[Index]*Cell),
	}, nil
}

// Attributes returns the attributes that a sums, sorted by name.
func (a *Accumulator) Attributes() []string {
	return append([]string(nil), a.attributes...)
}

// Add adds points to the accumulator. If any point is invalid an error
// is returned and the accumulator is left unchanged. The point index
// reported in errors counts all points added so far.
func (a *Accumulator) Add(points ...Point) error {
	return a.add(a.n, points)
}

func (a *Accumulator) add(offset int, points []Point) error {
	indices := make([]Index, len(points))
	for i, p := range points {
		for _, name := range a.attributes {
			if _, ok := p.Values[name]; !ok {
				return &MissingAttributeError{Index: offset + i, Attribute: name}
			}
		}
		idx, err := PointIndex(p.Point, a.boxSize)
		if err != nil {
			if e, ok := err.(*InvalidCoordinateError); ok {
				e.Index = offset + i
			}
			return err
		}
		indices[i] = idx
	}
	for i, p := range points {
		c, ok := a.cells[indices[i]]
		if !ok {
			c = newCell(indices[i], a.boxSize)
			a.cells[indices[i]] = c
		}
		c.Count++
		for _, name := range a.attributes {
			c.Values[name] += p.Values[name]
		}
	}
	a.n += len(points)
	return nil
}

// Merge adds the partial sums in o to a.
func (a *Accumulator) Merge(o *Accumulator) error {
	if a.boxSize != o.boxSize {
		return fmt.Errorf("grid: cannot merge box size %g into %g", o.boxSize, a.boxSize)
	}
	if !sameStrings(a.attributes, o.attributes) {
		return fmt.Errorf("grid: cannot merge attributes %v into %v", o.attributes, a.attributes)
	}
	for idx, oc := range o.cells {
		c, ok := a.cells[idx]
		if !ok {
			c = newCell(idx, a.boxSize)
			a.cells[idx] = c
		}
		c.Count += oc.Count
		for name, v := range oc.Values {
			c.Values[name] += v
		}
	}
	a.n += o.n
	return nil
}

// Len returns the number of non-empty cells.
func (a *Accumulator) Len() int { return len(a.cells) }

// Cells returns copies of the non-empty cells ordered by ascending X and
// then Y index.
func (a *Accumulator) Cells() []*Cell {
	cells := make([]*Cell, 0, len(a.cells))
	for _, c := range a.cells {
		cc := newCell(c.Index, c.BoxSize)
		cc.Count = c.Count
		for k, v := range c.Values {
			cc.Values[k] = v
		}
		cells = append(cells, cc)
	}
	sortCells(cells)
	return cells
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
