package vision

import (
	"image"

	"github.com/disintegration/imaging"
)

// CropPadding is the margin added around a region before re-detecting the
// face inside it, as a fraction of the region size.
const CropPadding = 0.25

// CropFace cuts region out of img with CropPadding on every side, clipped to
// the image bounds. The result has its origin at (0, 0).
func CropFace(img image.Image, region image.Rectangle) (*image.NRGBA, bool) {
	padX := int(float64(region.Dx()) * CropPadding)
	padY := int(float64(region.Dy()) * CropPadding)
	r := image.Rect(region.Min.X-padX, region.Min.Y-padY, region.Max.X+padX, region.Max.Y+padY).
		Intersect(img.Bounds())
	if r.Empty() {
		return nil, false
	}
	return imaging.Crop(img, r), true
}
