package dlib

import (
	"testing"

	"github.com/Kagami/go-face"
)

func TestDescriptorCopies(t *testing.T) {
	var d face.Descriptor
	for i := range d {
		d[i] = float32(i)
	}

	e := descriptor(d)
	if len(e) != 128 {
		t.Fatalf("expected 128 components, got %d", len(e))
	}
	d[5] = -1
	if e[5] != 5 {
		t.Errorf("expected embedding to be independent of the descriptor, got %v", e[5])
	}
}
