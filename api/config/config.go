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

// API configuration as read from strings/JSON and some constants defined here also
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
)

////////////////////////////////////////////////////////////////////////////////////////////////////////////
// Configuration for the alignment API

// APIConfig combines env vars and config JSON values
type APIConfig struct {
	EnvironmentName string

	// Input mosaics, loaded once at startup
	BaseImagePath    string // the image cutouts are displayed on, eg an infrared mosaic
	OverlayImagePath string // the image contours come from, eg a radio mosaic
	NoiseMapPath     string // RMS noise map matching the overlay, only needed for the median contour strategy

	// Pipeline parameters
	BaseCutoutSize    int
	OverlayCutoutSize int
	SigmaClip         float64
	Tolerance         float64
	ContourBase       float64
	ContourStrategy   string // "robust" or "median"
	SmoothSigma       float64

	// Preview rendering
	PreviewVmax  float64
	PreviewGamma float64

	LogLevel string // DEBUG, INFO or ERROR

	// Memoisation of computed bundles (empty MongoURI disables it)
	MongoURI          string
	MemoiseMaxAgeSec  uint32
	MemoiseGCInterSec uint32

	SentryEndpoint string
}

// Init config, loads config params
func Init() (APIConfig, error) {
	configFilePath := flag.String("customConfigPath", "", "Path to the json file holding the alignment API config")
	flag.Parse()

	if configFilePath == nil || *configFilePath == "" {
		return APIConfig{}, errors.New("no configuration provided")
	}

	cfg, err := NewConfigFromFile(*configFilePath)
	if err != nil {
		return cfg, err
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func NewConfigFromFile(configFilePath string) (APIConfig, error) {
	var cfg APIConfig

	fmt.Printf("Loading custom config from: %s\n", configFilePath)
	customConfig, err := os.ReadFile(configFilePath)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file at %s", configFilePath)
	}
	return buildConfig(customConfig)
}

func buildConfig(configJson []byte) (APIConfig, error) {
	var cfg APIConfig

	err := json.Unmarshal(configJson, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse custom config: %v", err)
	}

	// Override Config with any values explicitly set in Env Vars (SKYALIGN_CONFIG_*)
	// Ex: export SKYALIGN_CONFIG_SigmaClip="4.0"
	reflection := reflect.ValueOf(&cfg).Elem()
	for i := 0; i < reflection.NumField(); i++ {
		fieldName := reflection.Type().Field(i).Name
		field := reflection.Field(i)
		if val, present := os.LookupEnv(fmt.Sprintf("SKYALIGN_CONFIG_%s", fieldName)); present {
			switch field.Kind() {
			case reflect.String:
				field.SetString(val)
			case reflect.Int, reflect.Uint32:
				intVal, err := strconv.Atoi(val)
				if err != nil {
					fmt.Printf("Could not cast value SKYALIGN_CONFIG_%s=%s to int\n", fieldName, val)
					continue
				}
				if field.Kind() == reflect.Uint32 {
					field.SetUint(uint64(intVal))
				} else {
					field.SetInt(int64(intVal))
				}
			case reflect.Float64:
				floatVal, err := strconv.ParseFloat(val, 64)
				if err != nil {
					fmt.Printf("Could not cast value SKYALIGN_CONFIG_%s=%s to float\n", fieldName, val)
					continue
				}
				field.SetFloat(floatVal)
			}
		}
	}
	return cfg, nil
}

func applyDefaults(cfg *APIConfig) {
	if cfg.BaseCutoutSize <= 0 {
		cfg.BaseCutoutSize = 200
	}
	if cfg.OverlayCutoutSize <= 0 {
		cfg.OverlayCutoutSize = 180
	}
	if cfg.SigmaClip <= 0 {
		cfg.SigmaClip = 5.0
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 0.01
	}
	if cfg.ContourBase <= 0 {
		if cfg.ContourStrategy == "median" {
			cfg.ContourBase = 2.5
		} else {
			cfg.ContourBase = 3.0
		}
	}
	if cfg.ContourStrategy == "" {
		cfg.ContourStrategy = "robust"
	}
	if cfg.PreviewVmax <= 0 {
		cfg.PreviewVmax = 1.5
	}
	if cfg.PreviewGamma <= 0 {
		cfg.PreviewGamma = 0.7
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	if cfg.MemoiseMaxAgeSec == 0 {
		cfg.MemoiseMaxAgeSec = uint32(24 * 60 * 60)
	}
	if cfg.MemoiseGCInterSec == 0 {
		cfg.MemoiseGCInterSec = uint32(10 * 60)
	}
}
