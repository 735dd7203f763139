// Package variation derives the five intensity-graded edits of an uploaded photo.
package variation

import (
	"math"

	"photocurate/internal/models"
)

type Preset struct {
	Level int
	Label string
}

// Presets is ordered by level; Generate walks it front to back.
var Presets = [...]Preset{
	{Level: 1, Label: "Subtle"},
	{Level: 2, Label: "Light"},
	{Level: 3, Label: "Medium"},
	{Level: 4, Label: "Strong"},
	{Level: 5, Label: "Intense"},
}

const (
	MinIntensity     = 1
	MaxIntensity     = 5
	DefaultIntensity = 3
)

// Label maps an intensity to its display name. ok is false outside 1..5.
func Label(intensity int) (label string, ok bool) {
	if intensity < MinIntensity || intensity > MaxIntensity {
		return "", false
	}
	return Presets[intensity-1].Label, true
}

// AdjustmentFor computes the edit parameters for a level as affine
// functions of factor = level/5.
func AdjustmentFor(level int) models.Adjustment {
	factor := float64(level) / MaxIntensity
	return models.Adjustment{
		Brightness: 1 + 0.15*factor,
		Contrast:   1 + 0.30*factor,
		Saturation: 1 + 0.25*factor,
		Warmth:     int(math.Round(10 * factor)),
	}
}
