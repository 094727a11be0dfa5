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

package services

import (
	"fmt"
	"log"

	"github.com/getsentry/sentry-go"

	"github.com/skyalign/core/api/config"
	"github.com/skyalign/core/api/memoisation"
	"github.com/skyalign/core/core/alignment"
	"github.com/skyalign/core/core/contour"
	"github.com/skyalign/core/core/fitsio"
	"github.com/skyalign/core/core/logger"
	"github.com/skyalign/core/core/mongoDBConnection"
	"github.com/skyalign/core/core/timestamper"
)

// ApiVersion - set at build time via ldflags
var ApiVersion = "(local build)"

// APIServices - everything the endpoint handlers need, built once at startup
type APIServices struct {
	Config      config.APIConfig
	Log         logger.ILogger
	TimeStamper timestamper.ITimeStamper

	Pipeline *alignment.Pipeline

	Base     alignment.Image
	Overlay  alignment.Image
	NoiseMap *alignment.Image // only loaded for the median contour strategy

	Memoised *memoisation.Store // nil when memoisation is disabled
}

// InitServices - loads the input mosaics and connects everything up.
// Fatal on any failure, there's nothing to serve without the inputs
func InitServices(cfg config.APIConfig) *APIServices {
	ourLogger := &logger.StdOutLogger{}
	logLevel, err := logger.GetLogLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}
	ourLogger.SetLogLevel(logLevel)

	if len(cfg.SentryEndpoint) > 0 {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryEndpoint,
			Environment: cfg.EnvironmentName,
			Release:     ApiVersion,
		}); err != nil {
			ourLogger.Errorf("Sentry initialization failed: %v", err)
		}
	}

	svcs := &APIServices{
		Config:      cfg,
		Log:         ourLogger,
		TimeStamper: &timestamper.UnixTimeNowStamper{},
	}

	svcs.Base, err = loadImage(cfg.BaseImagePath, ourLogger)
	if err != nil {
		log.Fatalf("Failed to load base image: %v", err)
	}
	svcs.Overlay, err = loadImage(cfg.OverlayImagePath, ourLogger)
	if err != nil {
		log.Fatalf("Failed to load overlay image: %v", err)
	}

	params := alignment.Params{
		BaseCutoutSize:    cfg.BaseCutoutSize,
		OverlayCutoutSize: cfg.OverlayCutoutSize,
		SigmaClip:         cfg.SigmaClip,
		Tolerance:         cfg.Tolerance,
		ContourBase:       cfg.ContourBase,
		ContourStrategy:   contour.Strategy(cfg.ContourStrategy),
		SmoothSigma:       cfg.SmoothSigma,
		FillWithZero:      true, // bundles get JSON encoded, NaNs don't
	}
	svcs.Pipeline = alignment.NewPipeline(params, ourLogger)

	if params.ContourStrategy == contour.StrategyMedian {
		noiseMap, err := loadImage(cfg.NoiseMapPath, ourLogger)
		if err != nil {
			log.Fatalf("Failed to load noise map (required by median contour strategy): %v", err)
		}
		svcs.NoiseMap = &noiseMap
	}

	if len(cfg.MongoURI) > 0 {
		mongoClient, err := mongoDBConnection.Connect(cfg.MongoURI, ourLogger)
		if err != nil {
			log.Fatalf("Failed to connect to mongo: %v", err)
		}

		db := mongoClient.Database(mongoDBConnection.GetDatabaseName("skyalign", cfg.EnvironmentName))
		svcs.Memoised = memoisation.NewStore(db, svcs.TimeStamper, ourLogger)
	}

	return svcs
}

func loadImage(path string, iLog logger.ILogger) (alignment.Image, error) {
	if len(path) <= 0 {
		return alignment.Image{}, fmt.Errorf("no image path configured")
	}

	data, proj, err := fitsio.ReadImage(path)
	if err != nil {
		return alignment.Image{}, err
	}

	iLog.Infof("Loaded %v: %vx%v pixels, reference (%v, %v)", path, data.Cols, data.Rows, proj.RefRA, proj.RefDec)
	return alignment.Image{Data: data, Proj: proj}, nil
}
