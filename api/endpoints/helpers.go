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

package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/skyalign/core/core/cutout"
	"github.com/skyalign/core/core/errorwithstatus"
	"github.com/skyalign/core/core/logger"
	"github.com/skyalign/core/core/wcs"
)

// Helper functions for the endpoint handlers

func readTargetParams(r *http.Request) (float64, float64, error) {
	ra, err := readFloatParam(r, "ra")
	if err != nil {
		return 0, 0, err
	}
	dec, err := readFloatParam(r, "dec")
	if err != nil {
		return 0, 0, err
	}
	return ra, dec, nil
}

func readFloatParam(r *http.Request, name string) (float64, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, fmt.Errorf("missing query parameter: %v", name)
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %v: %v", name, str)
	}
	return val, nil
}

func badRequest(err error) error {
	return errorwithstatus.MakeBadRequestError(err)
}

// writeError - logs and serves an error with the right HTTP status.
// Target and parameter problems are the caller's fault (400), everything
// else means the pipeline broke (500)
func writeError(log logger.ILogger, w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var statusErr errorwithstatus.Error
	var rangeErr *cutout.TargetOutOfRangeError
	var domainErr *wcs.ProjectionDomainError
	var sizeErr *cutout.InvalidSizeError

	if errors.As(err, &statusErr) {
		status = statusErr.Status()
	} else if errors.As(err, &rangeErr) || errors.As(err, &domainErr) || errors.As(err, &sizeErr) {
		status = http.StatusBadRequest
	}

	log.Errorf("Request: %v (%v), Result: status=%v, error=%v", r.URL, r.Method, status, err)
	http.Error(w, err.Error(), status)
}
