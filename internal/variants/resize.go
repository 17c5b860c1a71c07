package variants

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"assetgen/internal/domain"
)

// resizeToFit maps src onto the target size according to the spec's fit
// mode. Contain letterboxes on a transparent canvas; inside returns the
// scaled dimensions without padding; cover center-crops the overflow.
func resizeToFit(src image.Image, spec domain.SizeSpec) *image.RGBA {
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	targetW, targetH := spec.Width, spec.Height
	if targetW <= 0 || targetH <= 0 {
		targetW, targetH = srcW, srcH
	}

	switch spec.Fit {
	case domain.FitFill:
		if spec.WithoutEnlargement && (targetW > srcW || targetH > srcH) {
			targetW = min(targetW, srcW)
			targetH = min(targetH, srcH)
		}
		return scale(src, src.Bounds(), targetW, targetH)
	case domain.FitCover:
		return resizeCover(src, targetW, targetH, spec.WithoutEnlargement)
	case domain.FitInside:
		w, h := fitWithin(srcW, srcH, targetW, targetH, spec.WithoutEnlargement)
		return scale(src, src.Bounds(), w, h)
	case domain.FitContain:
		fallthrough
	default:
		w, h := fitWithin(srcW, srcH, targetW, targetH, spec.WithoutEnlargement)
		canvas := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
		scaled := scale(src, src.Bounds(), w, h)
		offsetX := (targetW - w) / 2
		offsetY := (targetH - h) / 2
		xdraw.Draw(canvas, image.Rect(offsetX, offsetY, offsetX+w, offsetY+h), scaled, image.Point{}, xdraw.Over)
		return canvas
	}
}

// fitWithin scales (srcW, srcH) to fit inside (maxW, maxH) preserving the
// aspect ratio.
func fitWithin(srcW, srcH, maxW, maxH int, withoutEnlargement bool) (int, int) {
	scaleX := float64(maxW) / float64(srcW)
	scaleY := float64(maxH) / float64(srcH)
	s := scaleX
	if scaleY < s {
		s = scaleY
	}
	if withoutEnlargement && s > 1 {
		s = 1
	}
	w := int(float64(srcW)*s + 0.5)
	h := int(float64(srcH)*s + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// resizeCover fills the target box completely, cropping the overflow around
// the center. With withoutEnlargement the box shrinks to the source bounds
// rather than scaling the image up.
func resizeCover(src image.Image, targetW, targetH int, withoutEnlargement bool) *image.RGBA {
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	if withoutEnlargement {
		targetW = min(targetW, srcW)
		targetH = min(targetH, srcH)
	}

	scaleX := float64(targetW) / float64(srcW)
	scaleY := float64(targetH) / float64(srcH)
	s := scaleX
	if scaleY > s {
		s = scaleY
	}
	cropW := int(float64(targetW)/s + 0.5)
	cropH := int(float64(targetH)/s + 0.5)
	if cropW > srcW {
		cropW = srcW
	}
	if cropH > srcH {
		cropH = srcH
	}
	x0 := src.Bounds().Min.X + (srcW-cropW)/2
	y0 := src.Bounds().Min.Y + (srcH-cropH)/2
	cropRect := image.Rect(x0, y0, x0+cropW, y0+cropH)
	return scale(src, cropRect, targetW, targetH)
}

// scale resamples the given region of src into a w×h image.
func scale(src image.Image, region image.Rectangle, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, region, xdraw.Src, nil)
	return dst
}
