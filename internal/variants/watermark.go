package variants

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"assetgen/internal/domain"
)

// applyWatermark stamps the watermark text into the bottom-right corner of
// img. The image is modified in place; callers pass the freshly resized
// canvas, never the shared source.
func applyWatermark(img *image.RGBA, opts domain.WatermarkOptions) {
	text := opts.Text
	if text == "" {
		return
	}
	opacity := opts.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 0.5
	}

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	margin := 8
	x := img.Bounds().Max.X - textWidth - margin
	y := img.Bounds().Max.Y - margin
	if x < img.Bounds().Min.X {
		x = img.Bounds().Min.X
	}

	alpha := uint8(opacity * 255)
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: alpha}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	// Thin shadow first so the text stays readable on light imagery.
	shadow := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{A: alpha}),
		Face: face,
		Dot:  fixed.P(x+1, y+1),
	}
	shadow.DrawString(text)
	drawer.DrawString(text)
}
