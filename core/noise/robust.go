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

// Robust background noise estimation for sky images. A naive standard
// deviation over a radio mosaic is dominated by the bright real sources in
// it, so we iteratively clip outliers until the mean settles, then report
// the variance of what's left as the background noise floor.
package noise

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultSigmaClip - samples beyond mean + this many sigma get discarded each pass
	DefaultSigmaClip = 5.0

	// DefaultTolerance - stop once the mean changes by less than this fraction
	DefaultTolerance = 0.01

	// Safety cap on clipping passes
	maxIterations = 100
)

// ErrEmptyInput - no finite samples were supplied
var ErrEmptyInput = errors.New("no finite samples to estimate noise from")

// NonConvergenceError - the clipping loop hit its iteration cap before the
// mean settled. BestVariance holds the estimate from the final pass, and is
// also returned by RobustVariance alongside this error, so callers can
// choose to use it anyway
type NonConvergenceError struct {
	Iterations   int
	BestVariance float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("sigma clipping failed to converge after %v iterations", e.Iterations)
}

// RobustVariance - iterative sigma-clipped variance of a flattened sample
// set. NaN samples are ignored. Each pass discards samples whose magnitude
// exceeds mean + sigmaClip*stddev of the surviving subset, so the subset
// only ever shrinks, then recomputes the mean. Iteration stops when the
// relative change in the mean drops to tolerance or below. Returns the
// population variance of the final subset
func RobustVariance(samples []float64, sigmaClip float64, tolerance float64) (float64, error) {
	subset := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) {
			subset = append(subset, v)
		}
	}
	if len(subset) == 0 {
		return 0, ErrEmptyInput
	}

	mean := stat.Mean(subset, nil)

	for iter := 0; iter < maxIterations; iter++ {
		limit := mean + sigmaClip*stat.PopStdDev(subset, nil)

		kept := subset[:0]
		for _, v := range subset {
			if math.Abs(v) < limit {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			// Everything got clipped, report the variance before this pass
			return stat.PopVariance(subset, nil), &NonConvergenceError{Iterations: iter + 1, BestVariance: stat.PopVariance(subset, nil)}
		}
		subset = kept

		newMean := stat.Mean(subset, nil)

		// Fully symmetric zero-mean data makes the denominator vanish,
		// treat that as converged rather than dividing by zero
		denom := mean + newMean
		if denom == 0 {
			return stat.PopVariance(subset, nil), nil
		}

		diff := math.Abs(mean-newMean) / denom
		mean = newMean
		if diff <= tolerance {
			return stat.PopVariance(subset, nil), nil
		}
	}

	best := stat.PopVariance(subset, nil)
	return best, &NonConvergenceError{Iterations: maxIterations, BestVariance: best}
}

// RMS - root mean square of the finite samples in the slice
func RMS(samples []float64) float64 {
	sum := 0.0
	count := 0
	for _, v := range samples {
		if !math.IsNaN(v) {
			sum += v * v
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(count))
}
