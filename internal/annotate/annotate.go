// Package annotate draws recognition results onto frames and encodes them
// for display.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	KnownColor   = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	UnknownColor = color.RGBA{R: 220, G: 0, B: 0, A: 255}
	TextColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Annotator draws a box, a filled label bar along the bottom edge of the box
// and the label text for every detection.
type Annotator struct {
	Thickness int
	BarHeight int
	Face      font.Face
}

func New() *Annotator {
	return &Annotator{Thickness: 2, BarHeight: constants.LabelBarHeight, Face: basicfont.Face7x13}
}

// Annotate returns an RGBA copy of frame with dets drawn on it.
func (a *Annotator) Annotate(frame image.Image, dets []facematch.Detection) *image.RGBA {
	b := frame.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, frame, b.Min, draw.Src)
	a.Draw(dst, dets)
	return dst
}

// Draw paints dets onto dst. Everything is clipped to dst's bounds.
func (a *Annotator) Draw(dst draw.Image, dets []facematch.Detection) {
	bounds := dst.Bounds()
	for _, d := range dets {
		r := d.Region.Canon()
		if r.Intersect(bounds).Empty() {
			continue
		}
		c := UnknownColor
		if d.Result.Known {
			c = KnownColor
		}
		src := image.NewUniform(c)

		a.outline(dst, r, src)

		bar := image.Rect(r.Min.X, max(r.Max.Y-a.BarHeight, r.Min.Y), r.Max.X, r.Max.Y)
		draw.Draw(dst, bar.Intersect(bounds), src, image.Point{}, draw.Src)

		a.label(dst, r, facematch.ASCIILabel(d.Result.DisplayLabel()))
	}
}

func (a *Annotator) outline(dst draw.Image, r image.Rectangle, src image.Image) {
	t := max(a.Thickness, 1)
	bounds := dst.Bounds()
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(bounds), src, image.Point{}, draw.Src)
	}
}

func (a *Annotator) label(dst draw.Image, r image.Rectangle, text string) {
	face := a.Face
	if face == nil {
		face = basicfont.Face7x13
	}
	// glyphs outside the box are dropped
	target := dst
	if sub, ok := dst.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		if clipped, ok := sub.SubImage(r.Intersect(dst.Bounds())).(draw.Image); ok {
			target = clipped
		}
	}
	d := font.Drawer{
		Dst:  target,
		Src:  image.NewUniform(TextColor),
		Face: face,
		Dot:  fixed.P(r.Min.X+6, r.Max.Y-6),
	}
	d.DrawString(text)
}

// Encoder turns annotated frames into JPEG bytes.
type Encoder struct {
	Quality int
}

func NewEncoder(quality int) Encoder {
	if quality < 1 || quality > 100 {
		quality = constants.DefaultJPEGQuality
	}
	return Encoder{Quality: quality}
}

func (e Encoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.Quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
