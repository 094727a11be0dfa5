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

// Contour threshold generation for overlaying one sky image on another.
// Levels double from a noise-derived base, spanning the image's
// signal-to-noise dynamic range.
package contour

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Strategy - which noise figure the contour base is derived from
type Strategy string

const (
	// StrategyRobust - base on the iteratively sigma-clipped variance of the
	// whole overlay image. This is the canonical behaviour
	StrategyRobust Strategy = "robust"

	// StrategyMedian - base on the median of a local RMS map, the older
	// behaviour retained for comparing against previously published overlays
	StrategyMedian Strategy = "median"
)

// DefaultBaseMultiplier - contour base = this many sigma above the noise floor
const DefaultBaseMultiplier = 3.0

// MedianBaseMultiplier - base multiplier used by the median strategy
const MedianBaseMultiplier = 2.5

// medianMaxPower - the median strategy always emits 2^0 .. 2^16 steps
const medianMaxPower = 16

// InvalidNoiseError - the supplied noise estimate can't produce levels
type InvalidNoiseError struct {
	Sigma float64
}

func (e *InvalidNoiseError) Error() string {
	return fmt.Sprintf("invalid noise estimate: sigma=%v", e.Sigma)
}

// Levels - geometric contour thresholds k*sigma*2^n for n=0..floor(log2(peak/sigma)).
// If the peak doesn't rise above the noise floor, a single level at k*sigma
// is returned. The top level may exceed the peak for non power-of-two
// ratios, which is fine: nothing gets contoured at a level no data reaches
func Levels(sigma float64, peak float64, k float64) ([]float64, error) {
	if math.IsNaN(sigma) || sigma <= 0 {
		return nil, &InvalidNoiseError{Sigma: sigma}
	}
	if math.IsNaN(peak) {
		return nil, fmt.Errorf("peak value is NaN, image has no finite samples")
	}

	ratio := peak / sigma
	if ratio <= 1 {
		return []float64{k * sigma}, nil
	}

	maxPower := int(math.Floor(math.Log2(ratio)))
	levels := make([]float64, maxPower+1)
	for n := 0; n <= maxPower; n++ {
		levels[n] = k * sigma * math.Pow(2, float64(n))
	}
	return levels, nil
}

// MedianLevels - the older formula: fixed 2^0..2^16 steps from k times the
// median of a local RMS map around the target. NaN RMS samples are ignored
func MedianLevels(rmsSamples []float64, k float64) ([]float64, error) {
	finite := make([]float64, 0, len(rmsSamples))
	for _, v := range rmsSamples {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}

	median, err := stats.Median(finite)
	if err != nil {
		return nil, fmt.Errorf("failed to compute local RMS median: %v", err)
	}
	if median <= 0 {
		return nil, &InvalidNoiseError{Sigma: median}
	}

	base := k * median
	levels := make([]float64, medianMaxPower+1)
	for n := 0; n <= medianMaxPower; n++ {
		levels[n] = base * math.Pow(2, float64(n))
	}
	return levels, nil
}
