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

// Ties the whole cutout workflow together: extract a square window from
// each of two sky images around a target position, resample the overlay
// window onto the base window's pixel grid, estimate the overlay's
// background noise, and derive contour thresholds. The returned bundle is
// everything a renderer needs to draw overlay contours on the base image.
package alignment

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/skyalign/core/core/contour"
	"github.com/skyalign/core/core/cutout"
	"github.com/skyalign/core/core/logger"
	"github.com/skyalign/core/core/noise"
	"github.com/skyalign/core/core/raster"
	"github.com/skyalign/core/core/reproject"
	"github.com/skyalign/core/core/wcs"
)

// Image - a raster and the projection that places it on the sky. Both are
// borrowed and treated as read-only, so one Image can feed many concurrent
// Align calls
type Image struct {
	Data *raster.Raster
	Proj *wcs.TanProjection
}

// Params - pipeline tuning knobs with the documented defaults
type Params struct {
	BaseCutoutSize    int     // pixels, square window on the base image
	OverlayCutoutSize int     // pixels, square window on the overlay image
	SigmaClip         float64 // noise estimation clip threshold
	Tolerance         float64 // noise estimation convergence tolerance
	ContourBase       float64 // contour base multiplier k
	ContourStrategy   contour.Strategy
	SmoothSigma       float64 // gaussian smoothing of the resampled overlay, 0 = off
	FillWithZero      bool    // uncovered resampled pixels get 0 instead of NaN
	Interpolation     reproject.Interpolation
}

// DefaultParams - the production defaults
func DefaultParams() Params {
	return Params{
		BaseCutoutSize:    200,
		OverlayCutoutSize: 180,
		SigmaClip:         noise.DefaultSigmaClip,
		Tolerance:         noise.DefaultTolerance,
		ContourBase:       contour.DefaultBaseMultiplier,
		ContourStrategy:   contour.StrategyRobust,
	}
}

// Bundle - the pipeline output. Proj is the base cutout's projection and is
// the shared frame both arrays live in
type Bundle struct {
	Base       *cutout.Cutout
	Overlay    *raster.Raster // overlay resampled onto the base cutout's grid
	Footprint  *reproject.Footprint
	Levels     []float64
	Proj       *wcs.TanProjection
	NoiseSigma float64
	TargetRA   float64
	TargetDec  float64
}

// Pipeline - stateless orchestrator. Safe for concurrent Align calls
type Pipeline struct {
	Params Params
	Log    logger.ILogger
}

// NewPipeline - a pipeline with the given params. A nil logger means quiet
func NewPipeline(params Params, log logger.ILogger) *Pipeline {
	if log == nil {
		log = &logger.NullLogger{}
	}
	return &Pipeline{Params: params, Log: log}
}

// Align - runs the full workflow for a target position using the robust
// noise strategy. No partial results: the first failing stage aborts the
// run and its name is recorded on the returned error
func (p *Pipeline) Align(base Image, overlay Image, targetRA float64, targetDec float64) (*Bundle, error) {
	return p.align(base, overlay, nil, targetRA, targetDec)
}

// AlignWithNoiseMap - as Align, but contour levels come from the median of
// a separately supplied RMS noise map around the target (the older
// behaviour, for parity with previously published overlays). The noise map
// must share the overlay's projection
func (p *Pipeline) AlignWithNoiseMap(base Image, overlay Image, noiseMap Image, targetRA float64, targetDec float64) (*Bundle, error) {
	return p.align(base, overlay, &noiseMap, targetRA, targetDec)
}

func (p *Pipeline) align(base Image, overlay Image, noiseMap *Image, targetRA float64, targetDec float64) (*Bundle, error) {
	start := time.Now()

	baseCut, err := cutout.Extract(base.Data, base.Proj, targetRA, targetDec, p.Params.BaseCutoutSize)
	if err != nil {
		return nil, errors.Wrap(err, "base cutout")
	}
	p.Log.Debugf("base cutout: %vx%v at offset (%v, %v), took %v", baseCut.Data.Rows, baseCut.Data.Cols, baseCut.OffsetX, baseCut.OffsetY, time.Since(start))

	stageStart := time.Now()
	overlayCut, err := cutout.Extract(overlay.Data, overlay.Proj, targetRA, targetDec, p.Params.OverlayCutoutSize)
	if err != nil {
		return nil, errors.Wrap(err, "overlay cutout")
	}
	p.Log.Debugf("overlay cutout: %vx%v at offset (%v, %v), took %v", overlayCut.Data.Rows, overlayCut.Data.Cols, overlayCut.OffsetX, overlayCut.OffsetY, time.Since(stageStart))

	stageStart = time.Now()
	resampled, footprint, err := reproject.Resample(
		overlayCut.Data, overlayCut.Proj,
		baseCut.Proj, baseCut.Data.Rows, baseCut.Data.Cols,
		reproject.Options{Interpolation: p.Params.Interpolation, FillWithZero: p.Params.FillWithZero})
	if err != nil {
		return nil, errors.Wrap(err, "reproject overlay")
	}
	p.Log.Debugf("reprojected overlay covers %v of %v pixels, took %v", footprint.ValidCount(), len(footprint.Mask), time.Since(stageStart))

	if p.Params.SmoothSigma > 0 {
		resampled = reproject.GaussianSmooth(resampled, p.Params.SmoothSigma)
	}

	// Noise comes from the whole overlay image, not the cutout: a small
	// patch around a bright target would overestimate the floor
	stageStart = time.Now()
	sigma := math.NaN()
	var levels []float64

	if p.Params.ContourStrategy == contour.StrategyMedian {
		if noiseMap == nil {
			return nil, errors.New("contour levels: median strategy requires a noise map, see AlignWithNoiseMap")
		}
		rmsCut, err := cutout.Extract(noiseMap.Data, noiseMap.Proj, targetRA, targetDec, p.Params.OverlayCutoutSize)
		if err != nil {
			return nil, errors.Wrap(err, "noise map cutout")
		}
		levels, err = contour.MedianLevels(rmsCut.Data.FiniteSamples(), p.Params.ContourBase)
		if err != nil {
			return nil, errors.Wrap(err, "contour levels")
		}
	} else {
		variance, err := noise.RobustVariance(overlay.Data.FiniteSamples(), p.Params.SigmaClip, p.Params.Tolerance)
		if err != nil {
			return nil, errors.Wrap(err, "noise estimate")
		}
		sigma = math.Sqrt(variance)
		p.Log.Debugf("overlay noise sigma: %v, took %v", sigma, time.Since(stageStart))

		levels, err = contour.Levels(sigma, overlay.Data.Peak(), p.Params.ContourBase)
		if err != nil {
			return nil, errors.Wrap(err, "contour levels")
		}
	}

	p.Log.Infof("aligned target (%v, %v) in %v, %v contour levels", targetRA, targetDec, time.Since(start), len(levels))

	return &Bundle{
		Base:       baseCut,
		Overlay:    resampled,
		Footprint:  footprint,
		Levels:     levels,
		Proj:       baseCut.Proj,
		NoiseSigma: sigma,
		TargetRA:   targetRA,
		TargetDec:  targetDec,
	}, nil
}
