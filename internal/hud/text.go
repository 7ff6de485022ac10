package hud

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// drawLabel renders s onto the raster with its top-left corner at
// (x, y), using the built-in 7x13 bitmap face. A 1-px offset shadow
// keeps the label readable over skin tones.
func drawLabel(dst vision.Frame, x, y int, s string) {
	if dst.Empty() || s == "" {
		return
	}
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Ascent + face.Descent
	if w <= 0 {
		return
	}

	stage := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  stage,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	// Shadow pass first so glyph pixels always win.
	for gy := 0; gy < h; gy++ {
		for gx := 0; gx < w; gx++ {
			if stage.RGBAAt(gx, gy).A >= 128 {
				dst.Set(x+gx+1, y+gy+1, shadowColor[0], shadowColor[1], shadowColor[2])
			}
		}
	}
	for gy := 0; gy < h; gy++ {
		for gx := 0; gx < w; gx++ {
			if stage.RGBAAt(gx, gy).A >= 128 {
				dst.Set(x+gx, y+gy, labelColor[0], labelColor[1], labelColor[2])
			}
		}
	}
}
