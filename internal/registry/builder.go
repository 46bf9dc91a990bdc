// Package registry builds the per-group set of reference embeddings that
// live frames are matched against.
package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/disintegration/imaging"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/roster"
	"github.com/kozaktomas/rollcall/internal/vision"
)

// ErrRegistryEmpty is returned when no reference image of a group yielded an embedding.
var ErrRegistryEmpty = errors.New("registry is empty")

// Policy selects the reference face when an image contains several.
type Policy string

const (
	// PolicyFirst keeps the first face in detection order
	PolicyFirst Policy = "first"
	// PolicyLargest keeps the face with the largest area, first on ties
	PolicyLargest Policy = "largest"
)

// Builder turns a group's reference images into a facematch.Registry.
type Builder struct {
	Store    roster.Store
	Locator  vision.Locator
	Embedder vision.Embedder

	// Policy defaults to PolicyFirst
	Policy Policy

	// Cache is optional. Entries are keyed by the SHA-256 of the image bytes
	// and by Model, so a different backend never reuses them.
	Cache database.EmbeddingCache
	Model string

	// OnProgress is called after each image
	OnProgress func(done, total int)
}

// ContentHash returns the cache key of an image.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Build embeds every image of group in store order. Images that cannot be
// decoded or show no face are skipped and logged. When nothing usable
// remains, an empty registry is returned together with ErrRegistryEmpty.
func (b *Builder) Build(ctx context.Context, group string) (facematch.Registry, error) {
	images, err := b.Store.ListImages(ctx, group)
	if err != nil {
		return facematch.Registry{}, fmt.Errorf("list reference images: %w", err)
	}

	registry := make(facematch.Registry, 0, len(images))
	var lastErr error
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return facematch.Registry{}, err
		}

		emb, err := b.embedImage(ctx, img)
		switch {
		case errors.Is(err, vision.ErrNoFace):
			log.Printf("registry: %s/%s: no face found, skipping", group, img.Name)
		case err != nil:
			log.Printf("registry: %s/%s: %v, skipping", group, img.Name, err)
			lastErr = err
		default:
			registry = append(registry, facematch.Reference{Label: img.Label, Embedding: emb})
		}

		if b.OnProgress != nil {
			b.OnProgress(i+1, len(images))
		}
	}

	if len(registry) == 0 {
		if lastErr != nil {
			return registry, errors.Join(ErrRegistryEmpty, lastErr)
		}
		return registry, ErrRegistryEmpty
	}
	return registry, nil
}

func (b *Builder) embedImage(ctx context.Context, img roster.Image) (facematch.Embedding, error) {
	var hash string
	if b.Cache != nil {
		hash = ContentHash(img.Data)
		cached, err := b.Cache.GetEmbedding(ctx, hash, b.Model)
		if err != nil {
			log.Printf("registry: embedding cache lookup failed: %v", err)
		} else if cached != nil {
			return cached.Embedding, nil
		}
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		// An unreadable image is treated like one without a face.
		return nil, fmt.Errorf("%w: decode: %v", vision.ErrNoFace, err)
	}

	faces, err := vision.Analyze(ctx, b.Locator, b.Embedder, decoded)
	if err != nil {
		return nil, err
	}
	face, ok := b.choose(faces)
	if !ok {
		return nil, vision.ErrNoFace
	}

	if b.Cache != nil {
		entry := database.CachedEmbedding{ContentHash: hash, Model: b.Model, Embedding: face.Embedding}
		if err := b.Cache.PutEmbedding(ctx, entry); err != nil {
			log.Printf("registry: embedding cache store failed: %v", err)
		}
	}
	return face.Embedding, nil
}

func (b *Builder) choose(faces []vision.Face) (vision.Face, bool) {
	if len(faces) == 0 {
		return vision.Face{}, false
	}
	if b.Policy != PolicyLargest {
		return faces[0], true
	}
	regions := make([]image.Rectangle, len(faces))
	for i, f := range faces {
		regions[i] = f.Region
	}
	return faces[facematch.Largest(regions)], true
}
