// Package card renders a social post preview: the chosen variation with its
// caption set underneath.
package card

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce sync.Once
	regular  *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		regular, fontErr = truetype.Parse(goregular.TTF)
	})
	return regular, fontErr
}

// Render returns a new image: src on top, a white band with the wrapped
// caption below it, split by a hairline.
func Render(src image.Image, caption string) (*image.NRGBA, error) {
	const op = "card.Render"

	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	width := src.Bounds().Dx()
	height := src.Bounds().Dy()
	size := math.Max(12, float64(width)/28)
	pad := math.Floor(size)
	lineHeight := math.Ceil(size * 1.4)

	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()

	lines := wrap(face, caption, width-2*int(pad))
	band := int(2*pad + float64(len(lines))*lineHeight)

	dc := gg.NewContext(width, height+band)
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(src, 0, 0)

	dc.SetColor(color.NRGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff})
	dc.SetLineWidth(1)
	dc.DrawLine(0, float64(height)+0.5, float64(width), float64(height)+0.5)
	dc.Stroke()

	dc.SetFontFace(face)
	dc.SetColor(color.NRGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff})
	y := float64(height) + pad + size
	for _, line := range lines {
		dc.DrawString(line, pad, y)
		y += lineHeight
	}

	return imaging.Clone(dc.Image()), nil
}

// wrap breaks text into lines no wider than maxWidth pixels. A single word
// wider than maxWidth gets a line of its own.
func wrap(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if font.MeasureString(face, candidate).Ceil() <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}
