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

package reproject

import (
	"math"

	"github.com/skyalign/core/core/raster"
)

// GaussianSmooth - separable gaussian blur of a raster, sigma in pixels.
// Smoothing the resampled overlay before contouring hides interpolation
// artefacts at low signal-to-noise. NaN samples contribute nothing and the
// surviving weights renormalise around them, so coverage gaps don't bleed.
// sigma <= 0 returns an untouched copy
func GaussianSmooth(r *raster.Raster, sigma float64) *raster.Raster {
	result := &raster.Raster{Rows: r.Rows, Cols: r.Cols, Data: append([]float64{}, r.Data...)}
	if sigma <= 0 {
		return result
	}

	radius := int(math.Ceil(4 * sigma))
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}

	// Horizontal pass, then vertical
	tmp, _ := raster.New(r.Rows, r.Cols)
	for row := 0; row < r.Rows; row++ {
		for col := 0; col < r.Cols; col++ {
			tmp.Set(row, col, smoothAt(result, kernel, radius, row, col, true))
		}
	}
	for row := 0; row < r.Rows; row++ {
		for col := 0; col < r.Cols; col++ {
			result.Set(row, col, smoothAt(tmp, kernel, radius, row, col, false))
		}
	}
	return result
}

func smoothAt(r *raster.Raster, kernel []float64, radius int, row int, col int, horizontal bool) float64 {
	sum := 0.0
	weight := 0.0

	for k := -radius; k <= radius; k++ {
		sampleRow := row
		sampleCol := col
		if horizontal {
			sampleCol += k
		} else {
			sampleRow += k
		}
		if !r.Contains(sampleRow, sampleCol) {
			continue
		}

		v := r.At(sampleRow, sampleCol)
		if math.IsNaN(v) {
			continue
		}
		sum += v * kernel[k+radius]
		weight += kernel[k+radius]
	}

	if weight == 0 {
		return math.NaN()
	}
	return sum / weight
}
