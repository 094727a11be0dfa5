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

// Small helpers for writing preview images out
package utils

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"strings"
)

// WritePNGImageFile - saves an image, appending .png if the prefix lacks it
func WritePNGImageFile(pathPrefix string, img image.Image) error {
	fileName := pathPrefix
	if !strings.HasSuffix(fileName, ".png") {
		fileName += ".png"
	}

	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}

// ImageToPNGBytes - encodes an image to PNG in memory, for HTTP responses
func ImageToPNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
