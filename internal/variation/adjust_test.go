package variation

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocurate/internal/models"
)

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestApply_GreyPixelAtIntense(t *testing.T) {
	src := uniform(4, 4, color.NRGBA{R: 128, G: 128, B: 128, A: 255})

	out := Apply(src, AdjustmentFor(5))
	require.Equal(t, src.Bounds(), out.Bounds())

	// 128 -> x1.15 brightness -> contrast 1.3 around 0.5 -> +10 red, -5 blue.
	px := out.NRGBAAt(1, 1)
	assert.InDelta(t, 163, int(px.R), 2)
	assert.InDelta(t, 153, int(px.G), 2)
	assert.InDelta(t, 148, int(px.B), 2)
	assert.Equal(t, uint8(255), px.A)
}

func TestApply_IdentityAdjustment(t *testing.T) {
	src := uniform(2, 2, color.NRGBA{R: 10, G: 120, B: 240, A: 255})

	out := Apply(src, models.Adjustment{Brightness: 1, Contrast: 1, Saturation: 1})

	px := out.NRGBAAt(0, 0)
	assert.InDelta(t, 10, int(px.R), 1)
	assert.InDelta(t, 120, int(px.G), 1)
	assert.InDelta(t, 240, int(px.B), 1)
}

func TestApply_LeavesSourceUntouched(t *testing.T) {
	c := color.NRGBA{R: 90, G: 60, B: 30, A: 255}
	src := uniform(3, 3, c)

	_ = Apply(src, AdjustmentFor(5))

	assert.Equal(t, c, src.NRGBAAt(2, 2))
}

func TestApply_ClampsHighlights(t *testing.T) {
	src := uniform(2, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	px := Apply(src, AdjustmentFor(5)).NRGBAAt(0, 0)

	assert.Equal(t, uint8(255), px.R)
	assert.Equal(t, uint8(255), px.G)
	assert.Less(t, px.B, uint8(255))
}

func TestApply_HigherLevelIsWarmer(t *testing.T) {
	src := uniform(2, 2, color.NRGBA{R: 100, G: 100, B: 100, A: 255})

	low := Apply(src, AdjustmentFor(1)).NRGBAAt(0, 0)
	high := Apply(src, AdjustmentFor(5)).NRGBAAt(0, 0)

	assert.Greater(t, int(high.R)-int(high.B), int(low.R)-int(low.B))
}
