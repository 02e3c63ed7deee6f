package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodePNG renders a small two-tone test image: left half dark, right half light.
func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := uint8(30)
			if x >= 4 {
				v = 220
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestApply(t *testing.T) {
	data := encodePNG(t)
	out, mime := Apply(data, "image/png")

	assert.Equal(t, "image/png", mime)
	require.NotEmpty(t, out)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// After binarization every pixel is pure black or pure white.
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			v := r >> 8
			assert.True(t, v == 0 || v == 255, "pixel (%d,%d) = %d", x, y, v)
			assert.Equal(t, r, g)
			assert.Equal(t, r, b)
		}
	}
}

// Corrupt input must pass through untouched, never panic or error.
func TestApplyCorruptImage(t *testing.T) {
	data := []byte("this is not an image at all")
	out, mime := Apply(data, "image/jpeg")

	assert.Equal(t, data, out)
	assert.Equal(t, "image/jpeg", mime)
}

func TestApplyEmptyInput(t *testing.T) {
	out, mime := Apply(nil, "image/png")
	assert.Nil(t, out)
	assert.Equal(t, "image/png", mime)
}

func TestOtsuThresholdSeparatesTwoTones(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v := uint8(10)
			if x >= 2 {
				v = 240
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	threshold := otsuThreshold(img)
	assert.GreaterOrEqual(t, threshold, uint8(10))
	assert.Less(t, threshold, uint8(240))
}
