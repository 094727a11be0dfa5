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

// World coordinate system support: maps between sky coordinates
// (RA/Dec, degrees) and pixel positions on an image grid.
//
// Only the gnomonic (TAN) projection family is implemented, which is what
// the radio and optical survey mosaics we consume are stored in. Pixel
// coordinates here are zero-based with x along columns and y along rows.
package wcs

import (
	"fmt"
	"math"
)

const degToRad = math.Pi / 180.0
const radToDeg = 180.0 / math.Pi

// ProjectionDomainError - the requested sky position has no defined pixel
// position under this projection (eg behind the tangent plane)
type ProjectionDomainError struct {
	RA  float64
	Dec float64
}

func (e *ProjectionDomainError) Error() string {
	return fmt.Sprintf("sky position (%v, %v) is outside the projection domain", e.RA, e.Dec)
}

// TanProjection - gnomonic sky<->pixel transform for one image. Defined by
// a reference pixel, the sky position at that pixel, and a CD matrix giving
// pixel scale and rotation in degrees per pixel. Read-only after creation
type TanProjection struct {
	RefPixelX float64 // reference pixel, zero-based
	RefPixelY float64
	RefRA     float64 // sky position at the reference pixel, degrees
	RefDec    float64
	CD        [2][2]float64 // [ [CD1_1, CD1_2], [CD2_1, CD2_2] ], degrees/pixel

	cdInv [2][2]float64
}

// NewTanProjection - builds a projection, failing if the CD matrix is singular
func NewTanProjection(refPixelX float64, refPixelY float64, refRA float64, refDec float64, cd [2][2]float64) (*TanProjection, error) {
	det := cd[0][0]*cd[1][1] - cd[0][1]*cd[1][0]
	if det == 0 {
		return nil, fmt.Errorf("singular CD matrix: %+v", cd)
	}

	p := &TanProjection{
		RefPixelX: refPixelX,
		RefPixelY: refPixelY,
		RefRA:     refRA,
		RefDec:    refDec,
		CD:        cd,
	}
	p.cdInv = [2][2]float64{
		{cd[1][1] / det, -cd[0][1] / det},
		{-cd[1][0] / det, cd[0][0] / det},
	}
	return p, nil
}

// SkyToPixel - converts RA/Dec (degrees) to a real-valued pixel position.
// Fails with ProjectionDomainError for positions at or behind the tangent
// point's great circle, where the gnomonic projection is undefined
func (p *TanProjection) SkyToPixel(ra float64, dec float64) (float64, float64, error) {
	raRad := ra * degToRad
	decRad := dec * degToRad
	ra0 := p.RefRA * degToRad
	dec0 := p.RefDec * degToRad

	sinDec, cosDec := math.Sincos(decRad)
	sinDec0, cosDec0 := math.Sincos(dec0)
	cosDeltaRA := math.Cos(raRad - ra0)

	// Cosine of the angular distance from the tangent point
	cosC := sinDec0*sinDec + cosDec0*cosDec*cosDeltaRA
	if cosC <= 0 {
		return 0, 0, &ProjectionDomainError{RA: ra, Dec: dec}
	}

	// Standard coordinates on the tangent plane, in degrees
	xi := cosDec * math.Sin(raRad-ra0) / cosC * radToDeg
	eta := (cosDec0*sinDec - sinDec0*cosDec*cosDeltaRA) / cosC * radToDeg

	x := p.RefPixelX + p.cdInv[0][0]*xi + p.cdInv[0][1]*eta
	y := p.RefPixelY + p.cdInv[1][0]*xi + p.cdInv[1][1]*eta
	return x, y, nil
}

// SkyToPixelInt - as SkyToPixel but snapped to an integer pixel index.
// Sub-pixel results round half-to-even so repeated conversions are
// deterministic across platforms
func (p *TanProjection) SkyToPixelInt(ra float64, dec float64) (int, int, error) {
	x, y, err := p.SkyToPixel(ra, dec)
	if err != nil {
		return 0, 0, err
	}
	return int(math.RoundToEven(x)), int(math.RoundToEven(y)), nil
}

// PixelToSky - converts a real-valued pixel position to RA/Dec in degrees,
// with RA normalised to [0, 360)
func (p *TanProjection) PixelToSky(x float64, y float64) (float64, float64, error) {
	dx := x - p.RefPixelX
	dy := y - p.RefPixelY

	xi := (p.CD[0][0]*dx + p.CD[0][1]*dy) * degToRad
	eta := (p.CD[1][0]*dx + p.CD[1][1]*dy) * degToRad

	ra0 := p.RefRA * degToRad
	dec0 := p.RefDec * degToRad
	sinDec0, cosDec0 := math.Sincos(dec0)

	denom := cosDec0 - eta*sinDec0
	ra := ra0 + math.Atan2(xi, denom)
	dec := math.Atan2(sinDec0+eta*cosDec0, math.Sqrt(xi*xi+denom*denom))

	raDeg := math.Mod(ra*radToDeg, 360.0)
	if raDeg < 0 {
		raDeg += 360.0
	}
	return raDeg, dec * radToDeg, nil
}

// SliceWindow - re-bases the projection onto a sub-grid whose origin sits at
// (offsetX, offsetY) in this projection's pixel frame. Pure coordinate
// translation: for any pixel inside the window,
// parent.PixelToSky(x, y) == sliced.PixelToSky(x-offsetX, y-offsetY).
// Scale and rotation are unchanged, no resampling happens here
func (p *TanProjection) SliceWindow(offsetX int, offsetY int) *TanProjection {
	sliced := *p
	sliced.RefPixelX = p.RefPixelX - float64(offsetX)
	sliced.RefPixelY = p.RefPixelY - float64(offsetY)
	return &sliced
}
