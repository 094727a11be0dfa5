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

// 2D sample grids as read from sky survey images. Samples are float64,
// stored row-major, and NaN marks a missing/invalid sample.
package raster

import (
	"fmt"
	"math"
)

// Raster - a rows x cols grid of samples. Treated as read-only once handed
// to the alignment pipeline, so concurrent reads are safe.
type Raster struct {
	Rows int
	Cols int
	Data []float64 // row-major, len == Rows*Cols
}

// New - allocates a zeroed raster. Fails on non-positive dimensions
func New(rows int, cols int) (*Raster, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid raster dimensions: %vx%v", rows, cols)
	}
	return &Raster{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}, nil
}

// FromData - wraps an existing row-major slice. Fails if the slice length
// doesn't match the dimensions
func FromData(rows int, cols int, data []float64) (*Raster, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid raster dimensions: %vx%v", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("raster data length %v does not match dimensions %vx%v", len(data), rows, cols)
	}
	return &Raster{Rows: rows, Cols: cols, Data: data}, nil
}

func (r *Raster) At(row int, col int) float64 {
	return r.Data[row*r.Cols+col]
}

func (r *Raster) Set(row int, col int, val float64) {
	r.Data[row*r.Cols+col] = val
}

// Contains - true if the given integer pixel position is within the grid
func (r *Raster) Contains(row int, col int) bool {
	return row >= 0 && row < r.Rows && col >= 0 && col < r.Cols
}

// Peak - the largest finite sample, ignoring NaNs. Returns NaN if the
// raster holds no finite samples at all
func (r *Raster) Peak() float64 {
	peak := math.NaN()
	for _, v := range r.Data {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(peak) || v > peak {
			peak = v
		}
	}
	return peak
}

// FiniteSamples - flattened copy of all non-NaN samples, in row-major order.
// This is what the statistics routines operate on
func (r *Raster) FiniteSamples() []float64 {
	result := make([]float64, 0, len(r.Data))
	for _, v := range r.Data {
		if !math.IsNaN(v) {
			result = append(result, v)
		}
	}
	return result
}
