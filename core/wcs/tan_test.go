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

package wcs

import (
	"math"
	"testing"
)

// 1 arcsec pixels, RA increasing to the left as stored in survey mosaics
func makeTestProjection(t *testing.T) *TanProjection {
	proj, err := NewTanProjection(500, 500, 8.5, -43.3, [2][2]float64{
		{-1.0 / 3600.0, 0},
		{0, 1.0 / 3600.0},
	})
	if err != nil {
		t.Fatalf("Failed to create projection: %v", err)
	}
	return proj
}

func TestSkyPixelRoundTrip(t *testing.T) {
	proj := makeTestProjection(t)

	positions := [][2]float64{
		{500, 500},
		{0, 0},
		{123.25, 987.75},
		{999, 10},
	}

	for _, pos := range positions {
		ra, dec, err := proj.PixelToSky(pos[0], pos[1])
		if err != nil {
			t.Errorf("PixelToSky(%v, %v) failed: %v", pos[0], pos[1], err)
			continue
		}

		x, y, err := proj.SkyToPixel(ra, dec)
		if err != nil {
			t.Errorf("SkyToPixel(%v, %v) failed: %v", ra, dec, err)
			continue
		}

		if math.Abs(x-pos[0]) > 1e-6 || math.Abs(y-pos[1]) > 1e-6 {
			t.Errorf("Round trip of (%v, %v) gave (%v, %v)", pos[0], pos[1], x, y)
		}
	}
}

func TestReferencePixelMapsToReferenceSky(t *testing.T) {
	proj := makeTestProjection(t)

	x, y, err := proj.SkyToPixel(8.5, -43.3)
	if err != nil {
		t.Fatalf("SkyToPixel at reference failed: %v", err)
	}
	if math.Abs(x-500) > 1e-9 || math.Abs(y-500) > 1e-9 {
		t.Errorf("Reference sky position mapped to (%v, %v), expected (500, 500)", x, y)
	}
}

func TestProjectionDomain(t *testing.T) {
	proj := makeTestProjection(t)

	// The antipode of the tangent point has no gnomonic image
	_, _, err := proj.SkyToPixel(8.5+180.0, 43.3)
	if err == nil {
		t.Error("Expected domain error for antipodal position")
	}
	if _, ok := err.(*ProjectionDomainError); !ok {
		t.Errorf("Expected ProjectionDomainError, got: %v", err)
	}
}

func TestSkyToPixelIntRounding(t *testing.T) {
	proj := makeTestProjection(t)

	ra, dec, err := proj.PixelToSky(123.6, 77.2)
	if err != nil {
		t.Fatalf("PixelToSky failed: %v", err)
	}

	x, y, err := proj.SkyToPixelInt(ra, dec)
	if err != nil {
		t.Fatalf("SkyToPixelInt failed: %v", err)
	}

	fx, fy, _ := proj.SkyToPixel(ra, dec)
	if x != int(math.RoundToEven(fx)) || y != int(math.RoundToEven(fy)) {
		t.Errorf("Integer pixel (%v, %v) doesn't match rounded (%v, %v)", x, y, fx, fy)
	}
	if x != 124 || y != 77 {
		t.Errorf("Expected pixel (124, 77), got (%v, %v)", x, y)
	}
}

func TestSliceWindowRebasing(t *testing.T) {
	proj := makeTestProjection(t)
	sliced := proj.SliceWindow(400, 450)

	// Any in-window pixel must map to the same sky position through both
	for _, pos := range [][2]float64{{400, 450}, {450, 500}, {499.5, 520.25}} {
		parentRA, parentDec, err := proj.PixelToSky(pos[0], pos[1])
		if err != nil {
			t.Fatalf("Parent PixelToSky failed: %v", err)
		}
		slicedRA, slicedDec, err := sliced.PixelToSky(pos[0]-400, pos[1]-450)
		if err != nil {
			t.Fatalf("Sliced PixelToSky failed: %v", err)
		}

		if math.Abs(parentRA-slicedRA) > 1e-6 || math.Abs(parentDec-slicedDec) > 1e-6 {
			t.Errorf("Window re-basing drifted at (%v, %v): (%v, %v) vs (%v, %v)",
				pos[0], pos[1], parentRA, parentDec, slicedRA, slicedDec)
		}
	}
}

func TestSingularCDMatrix(t *testing.T) {
	_, err := NewTanProjection(0, 0, 10, 10, [2][2]float64{{1, 1}, {1, 1}})
	if err == nil {
		t.Error("Expected error for singular CD matrix")
	}
}
