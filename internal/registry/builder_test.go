package registry

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/kozaktomas/rollcall/internal/database/mock"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/roster"
	"github.com/kozaktomas/rollcall/internal/vision"
)

type fakeStore struct {
	images []roster.Image
	err    error
}

func (f fakeStore) Groups(ctx context.Context) ([]string, error) { return []string{"CS101"}, nil }

func (f fakeStore) ListImages(ctx context.Context, group string) ([]roster.Image, error) {
	return f.images, f.err
}

// fakeVision treats the red channel of pixel (0,0) as the number of faces.
// Face i occupies a square of side 10*(i+1); its embedding is {i, green}.
type fakeVision struct {
	calls int
}

func (f *fakeVision) Locate(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	f.calls++
	r, _, _, _ := img.At(0, 0).RGBA()
	n := int(r >> 8)
	regions := make([]image.Rectangle, n)
	for i := range regions {
		side := 10 * (i + 1)
		regions[i] = image.Rect(0, 0, side, side)
	}
	return regions, nil
}

func (f *fakeVision) Embed(ctx context.Context, img image.Image, region image.Rectangle) (facematch.Embedding, error) {
	_, g, _, _ := img.At(0, 0).RGBA()
	return facematch.Embedding{float32(region.Dx()/10 - 1), float32(g >> 8)}, nil
}

func pngWithFaces(t *testing.T, faces, tag uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	img.Set(0, 0, color.RGBA{R: faces, G: tag, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newBuilder(store roster.Store, fv *fakeVision) *Builder {
	return &Builder{Store: store, Locator: fv, Embedder: fv, Model: "fake"}
}

func TestBuild_SkipsCorruptImage(t *testing.T) {
	store := fakeStore{images: []roster.Image{
		{Label: "BROKEN", Name: "broken.jpg", Data: []byte("not an image")},
		{Label: "ALICE", Name: "alice.png", Data: pngWithFaces(t, 1, 7)},
	}}

	reg, err := newBuilder(store, &fakeVision{}).Build(context.Background(), "CS101")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(reg) != 1 || reg[0].Label != "ALICE" {
		t.Fatalf("expected one reference for ALICE, got %+v", reg)
	}
	if reg[0].Embedding[1] != 7 {
		t.Errorf("unexpected embedding %v", reg[0].Embedding)
	}
}

func TestBuild_SkipsImageWithoutFace(t *testing.T) {
	store := fakeStore{images: []roster.Image{
		{Label: "EMPTY", Name: "empty.png", Data: pngWithFaces(t, 0, 0)},
		{Label: "BOB", Name: "bob.png", Data: pngWithFaces(t, 1, 2)},
	}}

	reg, err := newBuilder(store, &fakeVision{}).Build(context.Background(), "CS101")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(reg) != 1 || reg[0].Label != "BOB" {
		t.Errorf("expected only BOB, got %+v", reg)
	}
}

func TestBuild_Empty(t *testing.T) {
	tests := []struct {
		name   string
		images []roster.Image
	}{
		{"no images", nil},
		{"only unusable images", []roster.Image{{Label: "X", Name: "x.jpg", Data: []byte{0xFF}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := newBuilder(fakeStore{images: tt.images}, &fakeVision{}).Build(context.Background(), "CS101")
			if !errors.Is(err, ErrRegistryEmpty) {
				t.Fatalf("expected ErrRegistryEmpty, got %v", err)
			}
			if reg == nil || len(reg) != 0 {
				t.Errorf("expected empty non-nil registry, got %#v", reg)
			}
		})
	}
}

func TestBuild_StoreError(t *testing.T) {
	boom := errors.New("permission denied")
	_, err := newBuilder(fakeStore{err: boom}, &fakeVision{}).Build(context.Background(), "CS101")
	if !errors.Is(err, boom) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestBuild_PreservesOrder(t *testing.T) {
	store := fakeStore{images: []roster.Image{
		{Label: "CAROL", Name: "c.png", Data: pngWithFaces(t, 1, 3)},
		{Label: "ALICE", Name: "a.png", Data: pngWithFaces(t, 1, 1)},
	}}
	reg, err := newBuilder(store, &fakeVision{}).Build(context.Background(), "CS101")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	labels := reg.Labels()
	if len(labels) != 2 || labels[0] != "CAROL" || labels[1] != "ALICE" {
		t.Errorf("expected store order, got %v", labels)
	}
}

func TestBuild_MultiFacePolicy(t *testing.T) {
	store := fakeStore{images: []roster.Image{
		{Label: "GROUP", Name: "g.png", Data: pngWithFaces(t, 3, 0)},
	}}

	tests := []struct {
		policy    Policy
		wantIndex float32
	}{
		{"", 0},
		{PolicyFirst, 0},
		{PolicyLargest, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			b := newBuilder(store, &fakeVision{})
			b.Policy = tt.policy
			reg, err := b.Build(context.Background(), "CS101")
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if reg[0].Embedding[0] != tt.wantIndex {
				t.Errorf("expected face %v, got %v", tt.wantIndex, reg[0].Embedding[0])
			}
		})
	}
}

func TestBuild_UsesCache(t *testing.T) {
	data := pngWithFaces(t, 1, 9)
	store := fakeStore{images: []roster.Image{{Label: "ALICE", Name: "a.png", Data: data}}}
	cache := mock.NewMockEmbeddingCache()
	fv := &fakeVision{}

	b := newBuilder(store, fv)
	b.Cache = cache

	first, err := b.Build(context.Background(), "CS101")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached embedding, got %d", cache.Len())
	}

	second, err := b.Build(context.Background(), "CS101")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if fv.calls != 1 {
		t.Errorf("expected detection to run once, ran %d times", fv.calls)
	}
	if cache.Hits() != 1 {
		t.Errorf("expected one cache hit, got %d", cache.Hits())
	}
	if facematch.EuclideanDistance(first[0].Embedding, second[0].Embedding) != 0 {
		t.Errorf("cached registry differs: %v vs %v", first[0].Embedding, second[0].Embedding)
	}
}

func TestBuild_CacheErrorsAreIgnored(t *testing.T) {
	store := fakeStore{images: []roster.Image{{Label: "ALICE", Name: "a.png", Data: pngWithFaces(t, 1, 1)}}}
	cache := mock.NewMockEmbeddingCache()
	cache.GetError = errors.New("db down")
	cache.PutError = errors.New("db down")

	b := newBuilder(store, &fakeVision{})
	b.Cache = cache
	reg, err := b.Build(context.Background(), "CS101")
	if err != nil || len(reg) != 1 {
		t.Errorf("expected build to succeed without cache, got %v %v", reg, err)
	}
}

func TestBuild_Progress(t *testing.T) {
	store := fakeStore{images: []roster.Image{
		{Label: "A", Name: "a.png", Data: pngWithFaces(t, 1, 1)},
		{Label: "B", Name: "b.png", Data: []byte("junk")},
	}}
	var calls [][2]int
	b := newBuilder(store, &fakeVision{})
	b.OnProgress = func(done, total int) { calls = append(calls, [2]int{done, total}) }

	b.Build(context.Background(), "CS101")

	if len(calls) != 2 || calls[1] != [2]int{2, 2} {
		t.Errorf("unexpected progress calls %v", calls)
	}
}

func TestBuild_BackendErrorSkipsImage(t *testing.T) {
	store := fakeStore{images: []roster.Image{{Label: "A", Name: "a.png", Data: pngWithFaces(t, 1, 1)}}}
	b := &Builder{Store: store, Locator: failingLocator{}, Embedder: &fakeVision{}}

	reg, err := b.Build(context.Background(), "CS101")
	if !errors.Is(err, ErrRegistryEmpty) {
		t.Fatalf("expected ErrRegistryEmpty, got %v", err)
	}
	if len(reg) != 0 {
		t.Errorf("expected empty registry, got %v", reg)
	}
}

type failingLocator struct{}

func (failingLocator) Locate(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	return nil, errors.New("service unavailable")
}

var _ vision.Locator = failingLocator{}
