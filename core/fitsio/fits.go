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

// Reading FITS images from sky surveys.
// We read a strict subset of what's possible: the primary HDU only, with
// BITPIX 16/-32/-64 and a TAN projection. Radio mosaics often carry
// degenerate frequency/Stokes axes (shape 1x1xNxM), those get squeezed
// down to the celestial plane.
// References:
// https://fits.gsfc.nasa.gov/fits_standard.html
// https://fits.gsfc.nasa.gov/fits_wcs.html
package fitsio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/skyalign/core/core/raster"
	"github.com/skyalign/core/core/wcs"
)

const blockSize = 2880
const cardSize = 80

// ReadImage - loads the primary HDU of a FITS file as a raster plus its
// sky projection
func ReadImage(path string) (*raster.Raster, *wcs.TanProjection, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	img, proj, err := Decode(fileBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%v: %v", path, err)
	}
	return img, proj, nil
}

// Decode - parses an in-memory FITS file
func Decode(fileBytes []byte) (*raster.Raster, *wcs.TanProjection, error) {
	header, dataStart, err := readHeader(fileBytes)
	if err != nil {
		return nil, nil, err
	}

	img, err := readImageData(fileBytes[dataStart:], header)
	if err != nil {
		return nil, nil, err
	}

	proj, err := readProjection(header)
	if err != nil {
		return nil, nil, err
	}

	return img, proj, nil
}

// Reads 80-byte header cards from 2880-byte blocks until the END card.
// Returns keyword->value strings and the offset where image data begins
func readHeader(fileBytes []byte) (map[string]string, int, error) {
	if len(fileBytes) < blockSize {
		return nil, 0, errors.New("file too short for a FITS header")
	}
	if !strings.HasPrefix(string(fileBytes[0:cardSize]), "SIMPLE ") {
		return nil, 0, errors.New("expected file to start with SIMPLE")
	}

	fields := map[string]string{}

	for pos := 0; pos+cardSize <= len(fileBytes); pos += cardSize {
		card := string(fileBytes[pos : pos+cardSize])

		keyword := strings.TrimRight(card[0:8], " ")
		if keyword == "END" {
			// Data starts at the next 2880-byte boundary
			dataStart := ((pos / blockSize) + 1) * blockSize
			return fields, dataStart, nil
		}
		if keyword == "" || keyword == "COMMENT" || keyword == "HISTORY" {
			continue
		}
		if len(card) < 10 || card[8:10] != "= " {
			continue
		}

		value := card[10:]
		if slash := indexOutsideQuotes(value, '/'); slash >= 0 {
			value = value[0:slash]
		}
		fields[keyword] = strings.TrimSpace(value)
	}

	return nil, 0, errors.New("END card not found in header")
}

// Finds a character's position in a card value, ignoring quoted strings
func indexOutsideQuotes(s string, ch byte) int {
	inQuote := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			inQuote = !inQuote
		} else if s[i] == ch && !inQuote {
			return i
		}
	}
	return -1
}

func headerInt(fields map[string]string, keyword string) (int, error) {
	str, ok := fields[keyword]
	if !ok {
		return 0, fmt.Errorf("%v not found", keyword)
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %v: %v", keyword, str)
	}
	return val, nil
}

func headerFloat(fields map[string]string, keyword string, defaultVal float64) (float64, error) {
	str, ok := fields[keyword]
	if !ok {
		return defaultVal, nil
	}
	// FITS floats may use D exponents
	str = strings.Replace(strings.Replace(str, "D", "E", 1), "d", "E", 1)
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %v: %v", keyword, str)
	}
	return val, nil
}

func readImageData(dataBytes []byte, fields map[string]string) (*raster.Raster, error) {
	bitpix, err := headerInt(fields, "BITPIX")
	if err != nil {
		return nil, err
	}
	naxis, err := headerInt(fields, "NAXIS")
	if err != nil {
		return nil, err
	}
	if naxis < 2 || naxis > 4 {
		return nil, fmt.Errorf("unsupported NAXIS: %v", naxis)
	}

	cols, err := headerInt(fields, "NAXIS1")
	if err != nil {
		return nil, err
	}
	rows, err := headerInt(fields, "NAXIS2")
	if err != nil {
		return nil, err
	}

	// We only take the first plane of any degenerate extra axes, which is
	// all of the data when they're length 1 (the usual case for mosaics)
	bscale, err := headerFloat(fields, "BSCALE", 1)
	if err != nil {
		return nil, err
	}
	bzero, err := headerFloat(fields, "BZERO", 0)
	if err != nil {
		return nil, err
	}

	pixelBytes := 0
	switch bitpix {
	case 16:
		pixelBytes = 2
	case -32:
		pixelBytes = 4
	case -64:
		pixelBytes = 8
	default:
		return nil, fmt.Errorf("unsupported BITPIX: %v", bitpix)
	}

	if len(dataBytes) < rows*cols*pixelBytes {
		return nil, fmt.Errorf("file truncated: expected %v data bytes, got %v", rows*cols*pixelBytes, len(dataBytes))
	}

	img, err := raster.New(rows, cols)
	if err != nil {
		return nil, err
	}

	blankStr, hasBlank := fields["BLANK"]
	blank := 0
	if hasBlank {
		blank, err = strconv.Atoi(blankStr)
		if err != nil {
			return nil, fmt.Errorf("invalid BLANK: %v", blankStr)
		}
	}

	for i := 0; i < rows*cols; i++ {
		pos := i * pixelBytes
		var v float64
		switch bitpix {
		case 16:
			raw := int16(binary.BigEndian.Uint16(dataBytes[pos:]))
			if hasBlank && int(raw) == blank {
				v = math.NaN()
			} else {
				v = bscale*float64(raw) + bzero
			}
		case -32:
			v = float64(math.Float32frombits(binary.BigEndian.Uint32(dataBytes[pos:])))
			v = bscale*v + bzero
		case -64:
			v = math.Float64frombits(binary.BigEndian.Uint64(dataBytes[pos:]))
			v = bscale*v + bzero
		}
		img.Data[i] = v
	}

	return img, nil
}

func readProjection(fields map[string]string) (*wcs.TanProjection, error) {
	// When present, the projection family has to be gnomonic
	if ctype, ok := fields["CTYPE1"]; ok {
		if !strings.Contains(ctype, "TAN") {
			return nil, fmt.Errorf("unsupported projection family: %v", ctype)
		}
	}

	crpix1, err := headerFloat(fields, "CRPIX1", 1)
	if err != nil {
		return nil, err
	}
	crpix2, err := headerFloat(fields, "CRPIX2", 1)
	if err != nil {
		return nil, err
	}
	crval1, err := headerFloat(fields, "CRVAL1", 0)
	if err != nil {
		return nil, err
	}
	crval2, err := headerFloat(fields, "CRVAL2", 0)
	if err != nil {
		return nil, err
	}

	cd := [2][2]float64{}
	if _, ok := fields["CD1_1"]; ok {
		names := [2][2]string{{"CD1_1", "CD1_2"}, {"CD2_1", "CD2_2"}}
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				cd[i][j], err = headerFloat(fields, names[i][j], 0)
				if err != nil {
					return nil, err
				}
			}
		}
	} else {
		// Older headers: per-axis scales plus an optional rotation
		cdelt1, err := headerFloat(fields, "CDELT1", 0)
		if err != nil {
			return nil, err
		}
		cdelt2, err := headerFloat(fields, "CDELT2", 0)
		if err != nil {
			return nil, err
		}
		if cdelt1 == 0 || cdelt2 == 0 {
			return nil, errors.New("no pixel scale found (CD matrix or CDELT)")
		}
		crota2, err := headerFloat(fields, "CROTA2", 0)
		if err != nil {
			return nil, err
		}

		sinRot, cosRot := math.Sincos(crota2 * math.Pi / 180.0)
		cd[0][0] = cdelt1 * cosRot
		cd[0][1] = -cdelt2 * sinRot
		cd[1][0] = cdelt1 * sinRot
		cd[1][1] = cdelt2 * cosRot
	}

	// FITS reference pixels are 1-based, ours are 0-based
	return wcs.NewTanProjection(crpix1-1, crpix2-1, crval1, crval2, cd)
}
