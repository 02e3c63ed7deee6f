// Package preprocess sharpens prescription photos for OCR: grayscale,
// contrast boost, then Otsu binarization. Phone pictures of paper are
// usually unevenly lit; a global threshold picked by maximizing
// between-class variance recovers most of the ink.
package preprocess

import (
	"bytes"
	"image"
	"image/color"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// contrastBoost is applied before thresholding; values beyond ~30 start
// clipping faint pen strokes.
const contrastBoost = 20

// Apply returns a preprocessed PNG rendition of the image along with its
// MIME type. It must never fail the request: on any decode or encode
// problem the original bytes and MIME type are returned unchanged.
func Apply(data []byte, mimeType string) ([]byte, string) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, mimeType
	}

	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, contrastBoost)
	bin := binarize(gray, otsuThreshold(gray))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, bin, imaging.PNG); err != nil {
		return data, mimeType
	}
	return buf.Bytes(), "image/png"
}

// otsuThreshold finds the luminance cut that maximizes between-class
// variance over the image histogram. img must already be grayscale so any
// one channel is the luminance.
func otsuThreshold(img *image.NRGBA) uint8 {
	var hist [256]int
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 128
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			hist[row[x*4]]++
		}
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumBack, weightBack float64
	best, bestVariance := uint8(128), -1.0
	for t := 0; t < 256; t++ {
		weightBack += float64(hist[t])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(t) * float64(hist[t])

		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore
		variance := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if variance > bestVariance {
			bestVariance = variance
			best = uint8(t)
		}
	}
	return best
}

// binarize maps every pixel to pure black or white around the threshold.
func binarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := img.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			v := uint8(0)
			if c.R > threshold {
				v = 255
			}
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
