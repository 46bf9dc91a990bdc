package facematch

import (
	"image"
	"math"
)

// ComputeIoU calculates Intersection over Union between two regions.
func ComputeIoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	intersection := float64(Area(inter))
	union := float64(Area(a)+Area(b)) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// Area returns the pixel area of r, zero for empty rectangles.
func Area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}

// ScaleRect multiplies all four coordinates of r by factor.
// The same factor is applied on both axes.
func ScaleRect(r image.Rectangle, factor float64) image.Rectangle {
	scale := func(v int) int { return int(math.Round(float64(v) * factor)) }
	return image.Rect(scale(r.Min.X), scale(r.Min.Y), scale(r.Max.X), scale(r.Max.Y))
}

// Largest returns the index of the region with the largest area.
// The first region wins ties; -1 is returned for an empty slice.
func Largest(regions []image.Rectangle) int {
	best, bestArea := -1, -1
	for i, r := range regions {
		if a := Area(r); a > bestArea {
			best, bestArea = i, a
		}
	}
	return best
}
