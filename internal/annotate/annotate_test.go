package annotate

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/kozaktomas/rollcall/internal/facematch"
)

func gray(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestAnnotate_DrawsBoxAndBar(t *testing.T) {
	frame := gray(200, 200)
	dets := []facematch.Detection{
		{Region: image.Rect(20, 20, 120, 120), Result: facematch.Identified("ALICE", 0.2)},
	}

	out := New().Annotate(frame, dets)

	if got := rgba(out.At(20, 60)); got != KnownColor {
		t.Errorf("expected left edge in known color, got %v", got)
	}
	if got := rgba(out.At(60, 21)); got != KnownColor {
		t.Errorf("expected top edge in known color, got %v", got)
	}
	// inside the box, above the label bar
	if got := rgba(out.At(60, 50)); got != rgba(frame.At(60, 50)) {
		t.Errorf("expected untouched interior, got %v", got)
	}
	// right end of the label bar, past any text
	if got := rgba(out.At(117, 100)); got != KnownColor {
		t.Errorf("expected filled label bar, got %v", got)
	}
	// outside the box
	if got := rgba(out.At(150, 150)); got != rgba(frame.At(150, 150)) {
		t.Errorf("expected pixels outside the box untouched, got %v", got)
	}
}

func TestAnnotate_UnknownIsRedWithText(t *testing.T) {
	out := New().Annotate(gray(200, 200), []facematch.Detection{
		{Region: image.Rect(10, 10, 190, 190), Result: facematch.Unknown()},
	})

	if got := rgba(out.At(10, 100)); got != UnknownColor {
		t.Errorf("expected unknown color, got %v", got)
	}

	white := 0
	for y := 155; y < 190; y++ {
		for x := 10; x < 80; x++ {
			if rgba(out.At(x, y)) == TextColor {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("expected label text in the bar")
	}
}

func TestAnnotate_DoesNotMutateInputs(t *testing.T) {
	frame := gray(50, 50)
	before := bytes.Clone(frame.Pix)
	dets := []facematch.Detection{{Region: image.Rect(5, 5, 45, 45), Result: facematch.Identified("BOB", 0.1)}}
	detsBefore := dets[0]

	New().Annotate(frame, dets)

	if !bytes.Equal(frame.Pix, before) {
		t.Error("frame was modified")
	}
	if dets[0] != detsBefore {
		t.Error("detection was modified")
	}
}

func TestAnnotate_ClipsToFrame(t *testing.T) {
	dets := []facematch.Detection{
		{Region: image.Rect(-30, -30, 400, 400), Result: facematch.Identified("CAROL", 0.3)},
		{Region: image.Rect(500, 500, 600, 600), Result: facematch.Unknown()},
	}
	out := New().Annotate(gray(100, 80), dets)
	if out.Bounds() != image.Rect(0, 0, 100, 80) {
		t.Errorf("unexpected bounds %v", out.Bounds())
	}
}

func TestAnnotate_NoDetections(t *testing.T) {
	frame := gray(30, 30)
	out := New().Annotate(frame, nil)
	if !bytes.Equal(out.Pix, frame.Pix) {
		t.Error("expected an identical copy")
	}
}

func TestEncoder(t *testing.T) {
	data, err := NewEncoder(90).Encode(gray(64, 48))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestNewEncoder_DefaultQuality(t *testing.T) {
	for _, q := range []int{0, -1, 101} {
		if e := NewEncoder(q); e.Quality != 85 {
			t.Errorf("NewEncoder(%d).Quality = %d, want 85", q, e.Quality)
		}
	}
}
