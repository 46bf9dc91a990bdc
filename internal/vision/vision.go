// Package vision defines the face locator and embedder used by the registry
// builder and the session pipeline. Backends live in sub-packages.
package vision

import (
	"context"
	"errors"
	"image"
	"reflect"

	"github.com/kozaktomas/rollcall/internal/facematch"
)

// ErrNoFace is returned when an image or region yields no usable face.
var ErrNoFace = errors.New("no usable face")

// Locator finds face regions in an image.
type Locator interface {
	Locate(ctx context.Context, img image.Image) ([]image.Rectangle, error)
}

// Embedder computes the embedding of the face inside region.
// Returns ErrNoFace when the region holds no usable face.
type Embedder interface {
	Embed(ctx context.Context, img image.Image, region image.Rectangle) (facematch.Embedding, error)
}

// Face is a located face together with its embedding.
type Face struct {
	Region    image.Rectangle
	Embedding facematch.Embedding
}

// Detector locates and embeds all faces in one pass. Backends whose engine
// produces both at once implement it so callers avoid a second inference.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Face, error)
}

// Backend is a complete vision engine.
type Backend interface {
	Locator
	Embedder
	Detector
	// Model names the embedding space; embeddings of different models never mix
	Model() string
	Close() error
}

// Analyze returns every face in img that could be embedded, in detection
// order. Regions the embedder rejects with ErrNoFace are dropped; other
// errors abort.
func Analyze(ctx context.Context, loc Locator, emb Embedder, img image.Image) ([]Face, error) {
	if d, ok := loc.(Detector); ok && sameBackend(loc, emb) {
		return d.Detect(ctx, img)
	}

	regions, err := loc.Locate(ctx, img)
	if err != nil {
		return nil, err
	}
	faces := make([]Face, 0, len(regions))
	for _, r := range regions {
		e, err := emb.Embed(ctx, img, r)
		if errors.Is(err, ErrNoFace) {
			continue
		}
		if err != nil {
			return nil, err
		}
		faces = append(faces, Face{Region: r, Embedding: e})
	}
	return faces, nil
}

func sameBackend(a, b any) bool {
	ta := reflect.TypeOf(a)
	return ta != nil && ta == reflect.TypeOf(b) && ta.Comparable() && a == b
}
