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
	"image"
	"image/color"
	"net/http"

	"github.com/skyalign/core/api/services"
	"github.com/skyalign/core/core/render"
	"github.com/skyalign/core/core/utils"
)

// MakePreviewHandler - GET /preview?ra=<deg>&dec=<deg>[&width=<px>]
// Runs the pipeline and returns a quick-look PNG of the aligned pair
func MakePreviewHandler(svcs *services.APIServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ra, dec, err := readTargetParams(r)
		if err != nil {
			writeError(svcs.Log, w, r, badRequest(err))
			return
		}

		bundle, err := runPipeline(svcs, ra, dec)
		if err != nil {
			writeError(svcs.Log, w, r, err)
			return
		}

		var img image.Image = render.Preview(bundle, svcs.Config.PreviewVmax, svcs.Config.PreviewGamma)
		render.MarkTarget(img.(*image.RGBA), bundle, color.RGBA{R: 255, G: 255, B: 0, A: 255})

		if width, err := readFloatParam(r, "width"); err == nil && int(width) > 0 {
			img = render.ScaleImage(img, int(width))
		}

		pngBytes, err := utils.ImageToPNGBytes(img)
		if err != nil {
			writeError(svcs.Log, w, r, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}
}
