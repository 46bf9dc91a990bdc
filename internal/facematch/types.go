// Package facematch matches face embeddings against a per-group registry of references.
package facematch

import (
	"image"

	"github.com/kozaktomas/rollcall/internal/constants"
)

// Embedding is a fixed-length face descriptor produced by a vision backend.
type Embedding []float32

// Reference pairs a person label with the embedding of their reference image.
type Reference struct {
	Label     string
	Embedding Embedding
}

// Registry is the ordered set of references for one group. Order matters:
// on equal distances the earlier reference wins.
type Registry []Reference

// Labels returns registry labels in order.
func (r Registry) Labels() []string {
	labels := make([]string, len(r))
	for i, ref := range r {
		labels[i] = ref.Label
	}
	return labels
}

// Result is the outcome of matching one embedding.
type Result struct {
	Known    bool
	Label    string
	Distance float64
}

// Identified returns a positive match.
func Identified(label string, distance float64) Result {
	return Result{Known: true, Label: label, Distance: distance}
}

// Unknown returns a non-match.
func Unknown() Result {
	return Result{}
}

// DisplayLabel is the text drawn next to the face.
func (r Result) DisplayLabel() string {
	if !r.Known {
		return constants.UnknownLabel
	}
	return r.Label
}

// Detection is one face found in a frame, in full-resolution coordinates.
type Detection struct {
	Region image.Rectangle
	Result Result
}
