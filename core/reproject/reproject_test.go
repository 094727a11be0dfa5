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
	"testing"

	"github.com/skyalign/core/core/raster"
	"github.com/skyalign/core/core/wcs"
)

const pixScaleDeg = 1.0 / 3600.0 // 1 arcsec pixels

func makeProjection(t *testing.T, refX, refY, refRA, refDec float64) *wcs.TanProjection {
	t.Helper()
	proj, err := wcs.NewTanProjection(refX, refY, refRA, refDec, [2][2]float64{
		{-pixScaleDeg, 0},
		{0, pixScaleDeg},
	})
	if err != nil {
		t.Fatalf("Failed to make projection: %v", err)
	}
	return proj
}

func makeRampRaster(t *testing.T, rows, cols int) *raster.Raster {
	t.Helper()
	r, err := raster.New(rows, cols)
	if err != nil {
		t.Fatalf("Failed to make raster: %v", err)
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			r.Set(row, col, float64(row*cols+col))
		}
	}
	return r
}

func TestIdentityResample(t *testing.T) {
	src := makeRampRaster(t, 20, 20)
	proj := makeProjection(t, 10, 10, 150.0, -30.0)

	out, footprint, err := Resample(src, proj, proj, 20, 20, Options{})
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	// Same grid in and out, so every sample must come back unchanged and
	// everything is covered
	if footprint.ValidCount() != 400 {
		t.Errorf("Footprint covers %v pixels, expected all 400", footprint.ValidCount())
	}
	for i := range src.Data {
		if math.Abs(out.Data[i]-src.Data[i]) > 1e-6 {
			t.Errorf("Sample %v changed: %v -> %v", i, src.Data[i], out.Data[i])
		}
	}
}

func TestPartialOverlap(t *testing.T) {
	src := makeRampRaster(t, 10, 10)
	srcProj := makeProjection(t, 5, 5, 150.0, -30.0)

	// Output reference sits 5 pixels east of the source's, so roughly half
	// the output grid falls off the source
	dstProj := makeProjection(t, 10, 5, 150.0, -30.0)

	out, footprint, err := Resample(src, srcProj, dstProj, 10, 10, Options{})
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	covered := footprint.ValidCount()
	if covered == 0 || covered == 100 {
		t.Errorf("Expected partial coverage, got %v of 100", covered)
	}

	for i, ok := range footprint.Mask {
		if ok {
			if math.IsNaN(out.Data[i]) {
				t.Errorf("Covered pixel %v is NaN", i)
			}
		} else if !math.IsNaN(out.Data[i]) {
			t.Errorf("Uncovered pixel %v = %v, expected NaN", i, out.Data[i])
		}
	}
}

func TestFillWithZero(t *testing.T) {
	src := makeRampRaster(t, 10, 10)
	srcProj := makeProjection(t, 5, 5, 150.0, -30.0)
	dstProj := makeProjection(t, 30, 5, 150.0, -30.0)

	out, footprint, err := Resample(src, srcProj, dstProj, 10, 10, Options{FillWithZero: true})
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if footprint.ValidCount() != 0 {
		t.Errorf("Expected no coverage, got %v pixels", footprint.ValidCount())
	}
	for i, v := range out.Data {
		if v != 0 {
			t.Errorf("Uncovered pixel %v = %v, expected 0", i, v)
		}
	}
}

func TestNearestInterpolation(t *testing.T) {
	src := makeRampRaster(t, 8, 8)
	proj := makeProjection(t, 4, 4, 150.0, -30.0)

	out, _, err := Resample(src, proj, proj, 8, 8, Options{Interpolation: Nearest})
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	for i := range src.Data {
		if out.Data[i] != src.Data[i] {
			t.Errorf("Sample %v changed: %v -> %v", i, src.Data[i], out.Data[i])
		}
	}
}

func TestInvalidOutputShape(t *testing.T) {
	src := makeRampRaster(t, 5, 5)
	proj := makeProjection(t, 2, 2, 150.0, -30.0)

	_, _, err := Resample(src, proj, proj, 0, 5, Options{})
	if err == nil {
		t.Fatalf("Expected error for 0-row output")
	}
	if _, ok := err.(*ShapeMismatchError); !ok {
		t.Errorf("Expected ShapeMismatchError, got: %v", err)
	}
}

func TestCoveredSamples(t *testing.T) {
	r, _ := raster.FromData(2, 2, []float64{1, 2, 3, 4})
	footprint := &Footprint{Rows: 2, Cols: 2, Mask: []bool{true, false, false, true}}

	samples := footprint.CoveredSamples(r)
	if len(samples) != 2 || samples[0] != 1 || samples[1] != 4 {
		t.Errorf("CoveredSamples = %v, expected [1 4]", samples)
	}
}

func TestGaussianSmoothFlatField(t *testing.T) {
	r, _ := raster.New(11, 11)
	for i := range r.Data {
		r.Data[i] = 5.0
	}

	smoothed := GaussianSmooth(r, 1.5)

	// A constant field must survive smoothing exactly, including at the
	// edges where the kernel renormalises
	for i, v := range smoothed.Data {
		if math.Abs(v-5.0) > 1e-9 {
			t.Errorf("Sample %v = %v, expected 5", i, v)
		}
	}
}

func TestGaussianSmoothSpreadsPeak(t *testing.T) {
	r, _ := raster.New(11, 11)
	r.Set(5, 5, 100.0)

	smoothed := GaussianSmooth(r, 1.0)

	if smoothed.At(5, 5) >= 100.0 {
		t.Errorf("Peak not reduced: %v", smoothed.At(5, 5))
	}
	if smoothed.At(5, 4) <= 0 || smoothed.At(4, 5) <= 0 {
		t.Errorf("Peak did not spread to neighbours: %v, %v", smoothed.At(5, 4), smoothed.At(4, 5))
	}
	if smoothed.At(5, 5) <= smoothed.At(5, 4) {
		t.Errorf("Centre %v should stay above neighbour %v", smoothed.At(5, 5), smoothed.At(5, 4))
	}
}

func TestGaussianSmoothSkipsNaN(t *testing.T) {
	r, _ := raster.New(5, 5)
	for i := range r.Data {
		r.Data[i] = 2.0
	}
	r.Set(2, 2, math.NaN())

	smoothed := GaussianSmooth(r, 1.0)

	// Neighbours renormalise around the gap, so the field stays flat
	if math.Abs(smoothed.At(2, 1)-2.0) > 1e-9 {
		t.Errorf("Neighbour of gap = %v, expected 2", smoothed.At(2, 1))
	}
}

func TestGaussianSmoothZeroSigma(t *testing.T) {
	r, _ := raster.FromData(2, 2, []float64{1, 2, 3, 4})
	smoothed := GaussianSmooth(r, 0)
	for i := range r.Data {
		if smoothed.Data[i] != r.Data[i] {
			t.Errorf("Sample %v changed with sigma=0", i)
		}
	}
}
