package variation

import (
	"image"

	"github.com/disintegration/gift"

	"photocurate/internal/models"
)

// Filters builds the chain for one adjustment. Order is fixed:
// brightness and saturation, then contrast around mid-grey, then the
// warmth bias (+warmth on red, -warmth/2 on blue, in 0..255 units).
func Filters(a models.Adjustment) []gift.Filter {
	brightness := float32(a.Brightness)
	contrast := float32(a.Contrast)
	redBias := float32(a.Warmth) / 255
	blueBias := -0.5 * float32(a.Warmth) / 255

	return []gift.Filter{
		gift.ColorFunc(func(r, g, b, alpha float32) (float32, float32, float32, float32) {
			return clamp01(r * brightness), clamp01(g * brightness), clamp01(b * brightness), alpha
		}),
		gift.Saturation(float32((a.Saturation - 1) * 100)),
		gift.ColorFunc(func(r, g, b, alpha float32) (float32, float32, float32, float32) {
			return linear(r, contrast), linear(g, contrast), linear(b, contrast), alpha
		}),
		gift.ColorFunc(func(r, g, b, alpha float32) (float32, float32, float32, float32) {
			return clamp01(r + redBias), g, clamp01(b + blueBias), alpha
		}),
	}
}

// Apply renders a new image; src is never modified.
func Apply(src image.Image, a models.Adjustment) *image.NRGBA {
	g := gift.New(Filters(a)...)
	dst := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

func linear(v, k float32) float32 {
	return clamp01((v-0.5)*k + 0.5)
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
