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

package cutout

import (
	"math"
	"testing"

	"github.com/skyalign/core/core/raster"
	"github.com/skyalign/core/core/wcs"
)

const pixScale = 1.0 / 3600.0 // 1 arcsec pixels

func makeTestImage(t *testing.T, rows int, cols int) (*raster.Raster, *wcs.TanProjection) {
	img, err := raster.New(rows, cols)
	if err != nil {
		t.Fatalf("%v", err)
	}
	for i := range img.Data {
		img.Data[i] = float64(i)
	}

	proj, err := wcs.NewTanProjection(float64(cols)/2, float64(rows)/2, 120.0, 15.0, [2][2]float64{
		{-pixScale, 0},
		{0, pixScale},
	})
	if err != nil {
		t.Fatalf("%v", err)
	}
	return img, proj
}

// Sky position of a given parent pixel, so tests can aim the cutout
func skyAt(t *testing.T, proj *wcs.TanProjection, x float64, y float64) (float64, float64) {
	ra, dec, err := proj.PixelToSky(x, y)
	if err != nil {
		t.Fatalf("PixelToSky failed: %v", err)
	}
	return ra, dec
}

func TestExtractFullyInside(t *testing.T) {
	img, proj := makeTestImage(t, 100, 100)
	ra, dec := skyAt(t, proj, 50, 50)

	cut, err := Extract(img, proj, ra, dec, 20)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if cut.Data.Rows != 20 || cut.Data.Cols != 20 {
		t.Errorf("Cutout shape %vx%v, expected 20x20", cut.Data.Rows, cut.Data.Cols)
	}
	if cut.OffsetX != 40 || cut.OffsetY != 40 {
		t.Errorf("Cutout offset (%v, %v), expected (40, 40)", cut.OffsetX, cut.OffsetY)
	}

	// Values must be copied from the right place
	if got := cut.Data.At(0, 0); got != img.At(40, 40) {
		t.Errorf("Corner value %v, expected %v", got, img.At(40, 40))
	}
	if got := cut.Data.At(10, 10); got != img.At(50, 50) {
		t.Errorf("Centre value %v, expected %v", got, img.At(50, 50))
	}
}

func TestExtractShapeAlwaysSquare(t *testing.T) {
	img, proj := makeTestImage(t, 100, 100)

	// Aim at positions that push the window over every edge and corner
	targets := [][2]float64{
		{2, 2}, {97, 3}, {2, 98}, {99, 99}, {50, 1}, {0, 50},
	}
	for _, pos := range targets {
		ra, dec := skyAt(t, proj, pos[0], pos[1])
		for _, size := range []int{1, 7, 20, 31} {
			cut, err := Extract(img, proj, ra, dec, size)
			if err != nil {
				t.Errorf("Extract at (%v, %v) size %v failed: %v", pos[0], pos[1], size, err)
				continue
			}
			if cut.Data.Rows != size || cut.Data.Cols != size {
				t.Errorf("Cutout at (%v, %v) size %v has shape %vx%v", pos[0], pos[1], size, cut.Data.Rows, cut.Data.Cols)
			}
		}
	}
}

func TestExtractPartialZeroPadding(t *testing.T) {
	img, proj := makeTestImage(t, 100, 100)
	ra, dec := skyAt(t, proj, 2, 2) // window [-8,12) x [-8,12) for size 20

	cut, err := Extract(img, proj, ra, dec, 20)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if cut.OffsetX != -8 || cut.OffsetY != -8 {
		t.Fatalf("Cutout offset (%v, %v), expected (-8, -8)", cut.OffsetX, cut.OffsetY)
	}

	// Cells that fell outside the parent stay zero
	if v := cut.Data.At(0, 0); v != 0 {
		t.Errorf("Out-of-range cell = %v, expected 0", v)
	}
	// In-bounds cells carry parent data: local (8,8) is parent (0,0)
	if v := cut.Data.At(8, 8); v != img.At(0, 0) {
		t.Errorf("In-range cell = %v, expected %v", v, img.At(0, 0))
	}
}

func TestExtractProjectionRebasing(t *testing.T) {
	img, proj := makeTestImage(t, 100, 100)
	ra, dec := skyAt(t, proj, 30, 70)

	cut, err := Extract(img, proj, ra, dec, 16)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Parent pixel (30, 70) is cutout pixel (30-OffsetX, 70-OffsetY), both
	// must agree on its sky position
	localRA, localDec, err := cut.Proj.PixelToSky(float64(30-cut.OffsetX), float64(70-cut.OffsetY))
	if err != nil {
		t.Fatalf("Cutout PixelToSky failed: %v", err)
	}
	if math.Abs(localRA-ra) > 1e-6 || math.Abs(localDec-dec) > 1e-6 {
		t.Errorf("Re-based projection drifted: (%v, %v) vs (%v, %v)", localRA, localDec, ra, dec)
	}
}

func TestExtractErrors(t *testing.T) {
	img, proj := makeTestImage(t, 100, 100)
	ra, dec := skyAt(t, proj, 50, 50)

	_, err := Extract(img, proj, ra, dec, 0)
	if _, ok := err.(*InvalidSizeError); !ok {
		t.Errorf("Expected InvalidSizeError for size 0, got: %v", err)
	}
	_, err = Extract(img, proj, ra, dec, -5)
	if _, ok := err.(*InvalidSizeError); !ok {
		t.Errorf("Expected InvalidSizeError for negative size, got: %v", err)
	}

	// A target far enough away that the window misses the image entirely
	farRA, farDec := skyAt(t, proj, 5000, 5000)
	_, err = Extract(img, proj, farRA, farDec, 20)
	if _, ok := err.(*TargetOutOfRangeError); !ok {
		t.Errorf("Expected TargetOutOfRangeError, got: %v", err)
	}
}
