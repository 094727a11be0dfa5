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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"time"

	"github.com/skyalign/core/api/endpoints"
	"github.com/skyalign/core/core/alignment"
	"github.com/skyalign/core/core/contour"
	"github.com/skyalign/core/core/fitsio"
	"github.com/skyalign/core/core/logger"
	"github.com/skyalign/core/core/render"
	"github.com/skyalign/core/core/utils"
)

func main() {
	fmt.Printf("Started: %v\n", time.Now().String())

	var basePath string
	var overlayPath string
	var noiseMapPath string
	var targetRA float64
	var targetDec float64
	var baseSize int
	var overlaySize int
	var smoothSigma float64
	var strategy string
	var vmax float64
	var outPrefix string

	flag.StringVar(&basePath, "base", "", "FITS image to display cutouts of, eg an infrared mosaic")
	flag.StringVar(&overlayPath, "overlay", "", "FITS image to contour, eg a radio mosaic")
	flag.StringVar(&noiseMapPath, "noiseMap", "", "RMS noise map FITS, only for -strategy median")
	flag.Float64Var(&targetRA, "ra", 0, "Target right ascension, degrees")
	flag.Float64Var(&targetDec, "dec", 0, "Target declination, degrees")
	flag.IntVar(&baseSize, "isize", 200, "Base cutout size in pixels")
	flag.IntVar(&overlaySize, "rsize", 180, "Overlay cutout size in pixels")
	flag.Float64Var(&smoothSigma, "smooth", 0, "Gaussian smoothing sigma for the reprojected overlay, 0=off")
	flag.StringVar(&strategy, "strategy", "robust", "Contour strategy: robust or median")
	flag.Float64Var(&vmax, "vmax", 1.5, "Preview: base value mapped to full white")
	flag.StringVar(&outPrefix, "out", "cutout", "Output file prefix, writes <prefix>.json and <prefix>.png")

	flag.Parse()

	// Check they're not empty
	checkNotEmpty := []string{
		basePath,
		overlayPath,
	}
	checkNotEmptyName := []string{
		"base",
		"overlay",
	}
	for c, s := range checkNotEmpty {
		if len(s) <= 0 {
			log.Fatalf("Parameter: %v was empty", checkNotEmptyName[c])
		}
	}

	iLog := &logger.StdOutLogger{}
	iLog.SetLogLevel(logger.LogDebug)

	base := mustLoad(basePath)
	overlay := mustLoad(overlayPath)

	params := alignment.DefaultParams()
	params.BaseCutoutSize = baseSize
	params.OverlayCutoutSize = overlaySize
	params.SmoothSigma = smoothSigma
	params.ContourStrategy = contour.Strategy(strategy)
	params.FillWithZero = true
	if params.ContourStrategy == contour.StrategyMedian {
		params.ContourBase = contour.MedianBaseMultiplier
	}

	pipeline := alignment.NewPipeline(params, iLog)

	var bundle *alignment.Bundle
	var err error
	if params.ContourStrategy == contour.StrategyMedian {
		if len(noiseMapPath) <= 0 {
			log.Fatalf("Parameter: noiseMap was empty, required by -strategy median")
		}
		bundle, err = pipeline.AlignWithNoiseMap(base, overlay, mustLoad(noiseMapPath), targetRA, targetDec)
	} else {
		bundle, err = pipeline.Align(base, overlay, targetRA, targetDec)
	}
	if err != nil {
		log.Fatalf("Alignment failed: %v", err)
	}

	resp := endpoints.MakeAlignmentResponse(bundle)
	jsonBytes, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		log.Fatalf("Failed to encode bundle: %v", err)
	}
	if err := os.WriteFile(outPrefix+".json", jsonBytes, 0644); err != nil {
		log.Fatalf("Failed to write %v.json: %v", outPrefix, err)
	}

	img := render.Preview(bundle, vmax, render.DefaultGamma)
	render.MarkTarget(img, bundle, color.RGBA{R: 255, G: 255, B: 0, A: 255})
	if err := utils.WritePNGImageFile(outPrefix, img); err != nil {
		log.Fatalf("Failed to write %v.png: %v", outPrefix, err)
	}

	iLog.Infof("Wrote %v.json and %v.png", outPrefix, outPrefix)
}

func mustLoad(path string) alignment.Image {
	data, proj, err := fitsio.ReadImage(path)
	if err != nil {
		log.Fatalf("Failed to load %v: %v", path, err)
	}
	return alignment.Image{Data: data, Proj: proj}
}
