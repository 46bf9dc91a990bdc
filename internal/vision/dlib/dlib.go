// Package dlib runs face detection and 128-d embeddings in-process through
// dlib's ResNet model (github.com/Kagami/go-face).
package dlib

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/Kagami/go-face"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/vision"
)

// ModelName identifies embeddings produced by this backend.
const ModelName = "dlib-resnet-128"

// Backend wraps a go-face recognizer. The recognizer is not safe for
// concurrent use, so every call holds mu.
type Backend struct {
	mu  sync.Mutex
	rec *face.Recognizer
	cnn bool
}

// New loads the dlib models from modelsDir (shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat and, for cnn, mmod_human_face_detector.dat).
func New(modelsDir string, cnn bool) (*Backend, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("can not initialize face recognizer: %w", err)
	}
	return &Backend{rec: rec, cnn: cnn}, nil
}

func (b *Backend) Model() string { return ModelName }

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rec.Close()
	return nil
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Backend) recognize(data []byte) ([]face.Face, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cnn {
		return b.rec.RecognizeCNN(data)
	}
	return b.rec.Recognize(data)
}

func (b *Backend) recognizeSingle(data []byte) (*face.Face, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cnn {
		return b.rec.RecognizeSingleCNN(data)
	}
	return b.rec.RecognizeSingle(data)
}

// Detect finds and embeds all faces in img. dlib reports rectangles relative
// to the encoded image, so they are shifted back by the image origin.
func (b *Backend) Detect(ctx context.Context, img image.Image) ([]vision.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := encode(img)
	if err != nil {
		return nil, err
	}
	found, err := b.recognize(data)
	if err != nil {
		return nil, fmt.Errorf("face recognition failed: %w", err)
	}

	origin := img.Bounds().Min
	faces := make([]vision.Face, len(found))
	for i, f := range found {
		faces[i] = vision.Face{
			Region:    f.Rectangle.Add(origin),
			Embedding: descriptor(f.Descriptor),
		}
	}
	return faces, nil
}

func (b *Backend) Locate(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	faces, err := b.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	regions := make([]image.Rectangle, len(faces))
	for i, f := range faces {
		regions[i] = f.Region
	}
	return regions, nil
}

// Embed re-detects the single face inside a padded crop of region.
func (b *Backend) Embed(ctx context.Context, img image.Image, region image.Rectangle) (facematch.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	crop, ok := vision.CropFace(img, region)
	if !ok {
		return nil, vision.ErrNoFace
	}
	data, err := encode(crop)
	if err != nil {
		return nil, err
	}
	f, err := b.recognizeSingle(data)
	if err != nil {
		return nil, fmt.Errorf("face recognition failed: %w", err)
	}
	if f == nil {
		return nil, vision.ErrNoFace
	}
	return descriptor(f.Descriptor), nil
}

func descriptor(d face.Descriptor) facematch.Embedding {
	e := make(facematch.Embedding, len(d))
	copy(e, d[:])
	return e
}
