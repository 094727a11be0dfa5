// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Fixed-size square sub-image extraction around a target sky position.
// Windows falling partly off the parent mosaic come back zero-padded at
// full size, never ragged. A survey target sitting near a mosaic edge is
// routine, not an error.
package cutout

import (
	"fmt"

	"github.com/skyalign/core/core/raster"
	"github.com/skyalign/core/core/wcs"
)

// InvalidSizeError - a non-positive cutout size was requested
type InvalidSizeError struct {
	Size int
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("invalid cutout size: %v", e.Size)
}

// TargetOutOfRangeError - the requested window missed the parent image entirely
type TargetOutOfRangeError struct {
	RA  float64
	Dec float64
	X   int
	Y   int
}

func (e *TargetOutOfRangeError) Error() string {
	return fmt.Sprintf("target (%v, %v) at pixel (%v, %v) has no overlap with the image", e.RA, e.Dec, e.X, e.Y)
}

// Cutout - a size x size window copied out of a parent raster, with the
// parent's projection re-based onto the window's local pixel frame.
// OffsetX/OffsetY record where the window's origin sits in the parent frame
// and can be negative when the window hangs off the top or left edge
type Cutout struct {
	Data    *raster.Raster
	Proj    *wcs.TanProjection
	OffsetX int
	OffsetY int
}

// Extract - copies a square window centred on the target sky position into
// a freshly allocated size x size raster. Cells outside the parent's bounds
// are left zero. Fails with TargetOutOfRangeError only when the window has
// zero overlap with the parent, and with ProjectionDomainError when the
// target has no pixel position under the parent's projection
func Extract(parent *raster.Raster, proj *wcs.TanProjection, ra float64, dec float64, size int) (*Cutout, error) {
	if size <= 0 {
		return nil, &InvalidSizeError{Size: size}
	}

	cx, cy, err := proj.SkyToPixelInt(ra, dec)
	if err != nil {
		return nil, err
	}

	// Window origin in parent pixel coordinates
	half := size / 2
	x0 := cx - half
	y0 := cy - half

	// Intersect with the parent's bounds
	xStart := max(x0, 0)
	yStart := max(y0, 0)
	xEnd := min(x0+size, parent.Cols)
	yEnd := min(y0+size, parent.Rows)

	if xStart >= xEnd || yStart >= yEnd {
		return nil, &TargetOutOfRangeError{RA: ra, Dec: dec, X: cx, Y: cy}
	}

	data, err := raster.New(size, size)
	if err != nil {
		return nil, err
	}

	for row := yStart; row < yEnd; row++ {
		srcOffset := row*parent.Cols + xStart
		dstOffset := (row-y0)*size + (xStart - x0)
		copy(data.Data[dstOffset:dstOffset+(xEnd-xStart)], parent.Data[srcOffset:srcOffset+(xEnd-xStart)])
	}

	return &Cutout{
		Data:    data,
		Proj:    proj.SliceWindow(x0, y0),
		OffsetX: x0,
		OffsetY: y0,
	}, nil
}
