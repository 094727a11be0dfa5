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

// Resamples one sky image onto another image's pixel grid. For every
// output pixel we walk output grid -> sky -> input grid and interpolate the
// input there. A footprint mask records which output pixels actually landed
// on input data; two independently pointed instruments usually only
// partially overlap, so missing coverage is normal and never an error.
package reproject

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/skyalign/core/core/raster"
	"github.com/skyalign/core/core/wcs"
)

// Interpolation - how input samples are gathered at fractional positions
type Interpolation int

const (
	// Bilinear - weighted blend of the 4 surrounding input samples, the default
	Bilinear Interpolation = iota

	// Nearest - snap to the closest input sample
	Nearest
)

// Pixel positions this close outside the source extent are treated as on
// the edge, absorbing float round-trip error through the two projections
const edgeTol = 1e-6

// ShapeMismatchError - a non-positive output shape was requested
type ShapeMismatchError struct {
	Rows int
	Cols int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("invalid output shape: %vx%v", e.Rows, e.Cols)
}

// Footprint - per-pixel coverage mask for a resampled raster. True means
// the pixel's sky position landed within the source image's extent
type Footprint struct {
	Rows int
	Cols int
	Mask []bool // row-major, len == Rows*Cols
}

func (f *Footprint) At(row int, col int) bool {
	return f.Mask[row*f.Cols+col]
}

// ValidCount - number of covered output pixels
func (f *Footprint) ValidCount() int {
	count := 0
	for _, v := range f.Mask {
		if v {
			count++
		}
	}
	return count
}

// CoveredSamples - the samples of a same-shaped raster at covered pixels
// only. Downstream statistics must use this rather than the raw array so
// uncovered padding never pollutes them
func (f *Footprint) CoveredSamples(r *raster.Raster) []float64 {
	result := make([]float64, 0, len(f.Mask))
	for i, v := range f.Mask {
		if v {
			result = append(result, r.Data[i])
		}
	}
	return result
}

// Options - resampling behaviour knobs
type Options struct {
	Interpolation Interpolation

	// FillWithZero - uncovered output pixels get 0 instead of NaN
	FillWithZero bool
}

// Resample - projects src onto the pixel grid described by dstProj with the
// given output shape. Returns the resampled raster and its footprint, which
// always share exactly the requested shape. Output pixels whose sky
// position falls outside src are filled (NaN by default) and masked out
func Resample(src *raster.Raster, srcProj *wcs.TanProjection, dstProj *wcs.TanProjection, rows int, cols int, opts Options) (*raster.Raster, *Footprint, error) {
	if rows <= 0 || cols <= 0 {
		return nil, nil, &ShapeMismatchError{Rows: rows, Cols: cols}
	}

	out, err := raster.New(rows, cols)
	if err != nil {
		return nil, nil, err
	}
	footprint := &Footprint{Rows: rows, Cols: cols, Mask: make([]bool, rows*cols)}

	fill := math.NaN()
	if opts.FillWithZero {
		fill = 0
	}

	// Every output pixel is independent, so carve the rows up between workers
	workers := runtime.NumCPU()
	if workers > rows {
		workers = rows
	}
	rowsPerWorker := (rows + workers - 1) / workers

	wg := sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		rowStart := w * rowsPerWorker
		rowEnd := min(rowStart+rowsPerWorker, rows)

		wg.Add(1)
		go func(rowStart, rowEnd int) {
			defer wg.Done()
			resampleRows(src, srcProj, dstProj, out, footprint, rowStart, rowEnd, fill, opts.Interpolation)
		}(rowStart, rowEnd)
	}
	wg.Wait()

	return out, footprint, nil
}

func resampleRows(src *raster.Raster, srcProj *wcs.TanProjection, dstProj *wcs.TanProjection, out *raster.Raster, footprint *Footprint, rowStart int, rowEnd int, fill float64, interp Interpolation) {
	maxX := float64(src.Cols - 1)
	maxY := float64(src.Rows - 1)

	for row := rowStart; row < rowEnd; row++ {
		for col := 0; col < out.Cols; col++ {
			idx := row*out.Cols + col

			ra, dec, err := dstProj.PixelToSky(float64(col), float64(row))
			if err != nil {
				out.Data[idx] = fill
				continue
			}

			sx, sy, err := srcProj.SkyToPixel(ra, dec)
			if err != nil {
				// No position in the source projection, leave uncovered
				out.Data[idx] = fill
				continue
			}

			sx = clampToEdge(sx, maxX)
			sy = clampToEdge(sy, maxY)
			if sx < 0 || sx > maxX || sy < 0 || sy > maxY {
				out.Data[idx] = fill
				continue
			}

			footprint.Mask[idx] = true

			if interp == Nearest {
				out.Data[idx] = src.At(int(sy+0.5), int(sx+0.5))
				continue
			}

			xl := math.Floor(sx)
			yl := math.Floor(sy)
			xr := sx - xl
			yr := sy - yl
			xh := math.Min(xl+1, maxX)
			yh := math.Min(yl+1, maxY)

			low := src.At(int(yl), int(xl))*(1-xr) + src.At(int(yl), int(xh))*xr
			high := src.At(int(yh), int(xl))*(1-xr) + src.At(int(yh), int(xh))*xr
			out.Data[idx] = low*(1-yr) + high*yr
		}
	}
}

// clampToEdge - pulls positions within edgeTol outside the extent back onto it
func clampToEdge(v float64, maxV float64) float64 {
	if v < 0 && v > -edgeTol {
		return 0
	}
	if v > maxV && v < maxV+edgeTol {
		return maxV
	}
	return v
}
