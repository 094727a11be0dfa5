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

package fitsio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func makeCard(keyword string, value string) []byte {
	return []byte(fmt.Sprintf("%-8s= %-70s", keyword, value))
}

func padToBlock(data []byte) []byte {
	for len(data)%blockSize != 0 {
		data = append(data, ' ')
	}
	return data
}

// makeTestFITS - a minimal single-HDU FITS file with a BITPIX -32 image
func makeTestFITS(cards [][]byte, pixels []float32) []byte {
	header := []byte{}
	for _, card := range cards {
		header = append(header, card...)
	}
	header = append(header, []byte(fmt.Sprintf("%-80s", "END"))...)
	header = padToBlock(header)

	data := make([]byte, len(pixels)*4)
	for i, v := range pixels {
		binary.BigEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return append(header, padToBlock(data)...)
}

func standardCards() [][]byte {
	return [][]byte{
		makeCard("SIMPLE", "T"),
		makeCard("BITPIX", "-32"),
		makeCard("NAXIS", "2"),
		makeCard("NAXIS1", "3"),
		makeCard("NAXIS2", "4"),
		makeCard("CTYPE1", "'RA---TAN'"),
		makeCard("CTYPE2", "'DEC--TAN'"),
		makeCard("CRPIX1", "2.0"),
		makeCard("CRPIX2", "3.0"),
		makeCard("CRVAL1", "150.0"),
		makeCard("CRVAL2", "-30.0"),
		makeCard("CD1_1", "-2.77777778E-04 / degrees per pixel"),
		makeCard("CD1_2", "0.0"),
		makeCard("CD2_1", "0.0"),
		makeCard("CD2_2", "2.77777778E-04"),
	}
}

func TestDecode(t *testing.T) {
	pixels := []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	fileBytes := makeTestFITS(standardCards(), pixels)

	img, proj, err := Decode(fileBytes)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if img.Rows != 4 || img.Cols != 3 {
		t.Fatalf("Image is %vx%v, expected 4x3", img.Rows, img.Cols)
	}
	for i, v := range pixels {
		if img.Data[i] != float64(v) {
			t.Errorf("Pixel %v = %v, expected %v", i, img.Data[i], v)
		}
	}

	// 1-based CRPIX becomes a 0-based reference pixel
	if proj.RefPixelX != 1.0 || proj.RefPixelY != 2.0 {
		t.Errorf("Reference pixel (%v, %v), expected (1, 2)", proj.RefPixelX, proj.RefPixelY)
	}
	if proj.RefRA != 150.0 || proj.RefDec != -30.0 {
		t.Errorf("Reference sky position (%v, %v), expected (150, -30)", proj.RefRA, proj.RefDec)
	}
	if proj.CD[0][0] != -2.77777778e-04 {
		t.Errorf("CD1_1 = %v, comment stripping broke the value", proj.CD[0][0])
	}
}

func TestDecodeDegenerateAxes(t *testing.T) {
	// Radio mosaics carry frequency/Stokes axes of length 1
	cards := append(standardCards(),
		makeCard("NAXIS3", "1"),
		makeCard("NAXIS4", "1"))
	cards[2] = makeCard("NAXIS", "4")

	img, _, err := Decode(makeTestFITS(cards, make([]float32, 12)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Rows != 4 || img.Cols != 3 {
		t.Errorf("Image is %vx%v, expected the celestial plane 4x3", img.Rows, img.Cols)
	}
}

func TestDecodeInt16WithBlank(t *testing.T) {
	cards := [][]byte{
		makeCard("SIMPLE", "T"),
		makeCard("BITPIX", "16"),
		makeCard("NAXIS", "2"),
		makeCard("NAXIS1", "2"),
		makeCard("NAXIS2", "2"),
		makeCard("BSCALE", "0.5"),
		makeCard("BZERO", "10.0"),
		makeCard("BLANK", "-32768"),
		makeCard("CDELT1", "-1.0D-03"),
		makeCard("CDELT2", "1.0D-03"),
		makeCard("CRVAL1", "150.0"),
		makeCard("CRVAL2", "-30.0"),
	}

	header := []byte{}
	for _, card := range cards {
		header = append(header, card...)
	}
	header = append(header, []byte(fmt.Sprintf("%-80s", "END"))...)
	header = padToBlock(header)

	data := make([]byte, 8)
	for i, raw := range []int16{2, 4, -32768, 6} {
		binary.BigEndian.PutUint16(data[i*2:], uint16(raw))
	}
	fileBytes := append(header, padToBlock(data)...)

	img, proj, err := Decode(fileBytes)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// BSCALE/BZERO applied, BLANK becomes NaN
	expected := []float64{11, 12, math.NaN(), 13}
	for i, v := range expected {
		if math.IsNaN(v) {
			if !math.IsNaN(img.Data[i]) {
				t.Errorf("Pixel %v = %v, expected NaN for BLANK", i, img.Data[i])
			}
		} else if img.Data[i] != v {
			t.Errorf("Pixel %v = %v, expected %v", i, img.Data[i], v)
		}
	}

	// D exponents in CDELT parsed, no CD matrix present
	if proj.CD[0][0] != -1.0e-03 || proj.CD[1][1] != 1.0e-03 {
		t.Errorf("CD from CDELT = %+v", proj.CD)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, _, err := Decode([]byte("not a fits file")); err == nil {
		t.Errorf("Expected error for short file")
	}

	junk := padToBlock([]byte(fmt.Sprintf("%-80s", "XTENSION= 'IMAGE'")))
	if _, _, err := Decode(junk); err == nil {
		t.Errorf("Expected error for missing SIMPLE card")
	}

	cards := standardCards()
	cards[1] = makeCard("BITPIX", "32")
	if _, _, err := Decode(makeTestFITS(cards, make([]float32, 12))); err == nil {
		t.Errorf("Expected error for unsupported BITPIX")
	}

	cards = standardCards()
	cards[5] = makeCard("CTYPE1", "'RA---SIN'")
	if _, _, err := Decode(makeTestFITS(cards, make([]float32, 12))); err == nil {
		t.Errorf("Expected error for non-TAN projection")
	}

	fileBytes := makeTestFITS(standardCards(), make([]float32, 12))
	if _, _, err := Decode(fileBytes[0 : len(fileBytes)-blockSize]); err == nil {
		t.Errorf("Expected error for truncated data")
	}
}

func TestReadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.fits")
	if err := os.WriteFile(path, makeTestFITS(standardCards(), make([]float32, 12)), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	img, _, err := ReadImage(path)
	if err != nil {
		t.Fatalf("ReadImage failed: %v", err)
	}
	if img.Rows != 4 || img.Cols != 3 {
		t.Errorf("Image is %vx%v, expected 4x3", img.Rows, img.Cols)
	}

	if _, _, err := ReadImage(filepath.Join(t.TempDir(), "missing.fits")); err == nil {
		t.Errorf("Expected error for missing file")
	}
}
