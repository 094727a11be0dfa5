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
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/skyalign/core/api/config"
	"github.com/skyalign/core/api/services"
	"github.com/skyalign/core/core/alignment"
)

// AlignmentResponse - the output bundle flattened for JSON transport.
// Arrays are row-major with shape Rows x Cols
type AlignmentResponse struct {
	TargetRA  float64 `json:"targetRA"`
	TargetDec float64 `json:"targetDec"`

	Rows int `json:"rows"`
	Cols int `json:"cols"`

	Base      []float64 `json:"base"`
	BaseValid []bool    `json:"baseValid"` // false where the base mosaic had no sample
	Overlay   []float64 `json:"overlay"`
	Footprint []bool    `json:"footprint"`

	Levels     []float64 `json:"levels"`
	NoiseSigma float64   `json:"noiseSigma"` // 0 when the median strategy was used

	// The shared pixel frame both arrays live in
	RefPixelX float64       `json:"refPixelX"`
	RefPixelY float64       `json:"refPixelY"`
	RefRA     float64       `json:"refRA"`
	RefDec    float64       `json:"refDec"`
	CD        [2][2]float64 `json:"cd"`
}

// MakeAlignmentResponse - flattens a bundle for transport. JSON has no
// representation for NaN, so blanked samples become 0: the base carries its
// own validity mask, overlay validity is already the footprint
func MakeAlignmentResponse(bundle *alignment.Bundle) AlignmentResponse {
	sigma := bundle.NoiseSigma
	if math.IsNaN(sigma) {
		sigma = 0
	}

	base, baseValid := sanitizeForTransport(bundle.Base.Data.Data)
	overlay, _ := sanitizeForTransport(bundle.Overlay.Data)

	return AlignmentResponse{
		TargetRA:   bundle.TargetRA,
		TargetDec:  bundle.TargetDec,
		Rows:       bundle.Base.Data.Rows,
		Cols:       bundle.Base.Data.Cols,
		Base:       base,
		BaseValid:  baseValid,
		Overlay:    overlay,
		Footprint:  bundle.Footprint.Mask,
		Levels:     bundle.Levels,
		NoiseSigma: sigma,
		RefPixelX:  bundle.Proj.RefPixelX,
		RefPixelY:  bundle.Proj.RefPixelY,
		RefRA:      bundle.Proj.RefRA,
		RefDec:     bundle.Proj.RefDec,
		CD:         bundle.Proj.CD,
	}
}

// MakeAlignmentHandler - GET /alignment?ra=<deg>&dec=<deg>
// Runs the pipeline for the target (or serves a memoised result) and
// returns the bundle as JSON
func MakeAlignmentHandler(svcs *services.APIServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ra, dec, err := readTargetParams(r)
		if err != nil {
			writeError(svcs.Log, w, r, badRequest(err))
			return
		}

		memoKey := ""
		if svcs.Memoised != nil {
			memoKey = makeMemoKey(svcs.Config, ra, dec)

			if cached, err := svcs.Memoised.Get(memoKey); err == nil {
				svcs.Log.Debugf("Serving memoised bundle for %v", memoKey)
				w.Header().Set("Content-Type", "application/json")
				w.Write(cached)
				return
			} else if err != mongo.ErrNoDocuments {
				svcs.Log.Errorf("Memoisation read failed for %v: %v", memoKey, err)
			}
		}

		bundle, err := runPipeline(svcs, ra, dec)
		if err != nil {
			writeError(svcs.Log, w, r, err)
			return
		}

		respBytes, err := json.Marshal(MakeAlignmentResponse(bundle))
		if err != nil {
			writeError(svcs.Log, w, r, err)
			return
		}

		if svcs.Memoised != nil {
			if err := svcs.Memoised.Put(memoKey, respBytes); err != nil {
				svcs.Log.Errorf("%v", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(respBytes)
	}
}

// sanitizeForTransport - copies samples with NaN mapped to 0, plus a mask
// of which samples were real
func sanitizeForTransport(data []float64) ([]float64, []bool) {
	out := make([]float64, len(data))
	valid := make([]bool, len(data))
	for i, v := range data {
		if !math.IsNaN(v) {
			out[i] = v
			valid[i] = true
		}
	}
	return out, valid
}

// makeMemoKey - cache key for a target request. Every parameter that
// changes the output bundle has to appear here, otherwise a config change
// across restarts serves stale results out of the shared mongo cache
func makeMemoKey(cfg config.APIConfig, ra float64, dec float64) string {
	return fmt.Sprintf("align-%.6f-%.6f-b%v-o%v-%v-k%v-c%v-t%v-s%v",
		ra, dec,
		cfg.BaseCutoutSize, cfg.OverlayCutoutSize, cfg.ContourStrategy,
		cfg.ContourBase, cfg.SigmaClip, cfg.Tolerance, cfg.SmoothSigma)
}

func runPipeline(svcs *services.APIServices, ra float64, dec float64) (*alignment.Bundle, error) {
	if svcs.NoiseMap != nil {
		return svcs.Pipeline.AlignWithNoiseMap(svcs.Base, svcs.Overlay, *svcs.NoiseMap, ra, dec)
	}
	return svcs.Pipeline.Align(svcs.Base, svcs.Overlay, ra, dec)
}
