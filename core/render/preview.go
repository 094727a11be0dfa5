package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/skyalign/core/core/alignment"
)

// Turns an alignment bundle into a quick-look preview image: the base
// cutout as a power-law stretched greyscale heatmap with overlay pixels
// tinted by how many contour levels they exceed. This is a diagnostic
// surface, real figure rendering happens downstream of the API.

// DefaultGamma - power-law stretch exponent for the base image
const DefaultGamma = 0.7

var contourTint = color.RGBA{R: 30, G: 100, B: 220, A: 255}

// Preview - renders bundle to an RGBA image of the base cutout's size.
// vmax is the base value mapped to full white, values above it clip
func Preview(bundle *alignment.Bundle, vmax float64, gamma float64) *image.RGBA {
	rows := bundle.Base.Data.Rows
	cols := bundle.Base.Data.Cols
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))

	if gamma <= 0 {
		gamma = DefaultGamma
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			v := bundle.Base.Data.At(row, col)
			if math.IsNaN(v) || v < 0 {
				v = 0
			}
			norm := v / vmax
			if norm > 1 {
				norm = 1
			}
			grey := uint8(math.Pow(norm, gamma) * 255)

			// Sky images draw with the origin at bottom left
			img.SetRGBA(col, rows-1-row, color.RGBA{R: grey, G: grey, B: grey, A: 255})
		}
	}

	// Tint overlay pixels by the number of contour levels they exceed
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if !bundle.Footprint.At(row, col) {
				continue
			}
			v := bundle.Overlay.At(row, col)
			if math.IsNaN(v) || len(bundle.Levels) == 0 || v < bundle.Levels[0] {
				continue
			}

			exceeded := 0
			for _, level := range bundle.Levels {
				if v >= level {
					exceeded++
				}
			}

			blend := float64(exceeded) / float64(len(bundle.Levels))
			existing := img.RGBAAt(col, rows-1-row)
			img.SetRGBA(col, rows-1-row, color.RGBA{
				R: mix(existing.R, contourTint.R, blend),
				G: mix(existing.G, contourTint.G, blend),
				B: mix(existing.B, contourTint.B, blend),
				A: 255,
			})
		}
	}

	return img
}

// MarkTarget - draws a small cross at the bundle's target sky position
func MarkTarget(img *image.RGBA, bundle *alignment.Bundle, markColour color.Color) {
	x, y, err := bundle.Proj.SkyToPixelInt(bundle.TargetRA, bundle.TargetDec)
	if err != nil {
		return
	}

	rows := bundle.Base.Data.Rows
	for d := -3; d <= 3; d++ {
		setIfInside(img, x+d, rows-1-y, markColour)
		setIfInside(img, x, rows-1-(y+d), markColour)
	}
}

// ScaleImage - resizes a preview to the given width, preserving aspect ratio
func ScaleImage(img image.Image, newWidth int) image.Image {
	bounds := img.Bounds()

	w := newWidth
	h := int(float32(bounds.Max.Y) / float32(bounds.Max.X) * float32(w))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, img, img.Bounds(), draw.Over, nil)

	return dst
}

func mix(a uint8, b uint8, blend float64) uint8 {
	return uint8(float64(a)*(1-blend) + float64(b)*blend)
}

func setIfInside(img *image.RGBA, x int, y int, c color.Color) {
	if image.Pt(x, y).In(img.Rect) {
		img.Set(x, y, c)
	}
}
