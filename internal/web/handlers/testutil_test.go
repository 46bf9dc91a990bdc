package handlers

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/camera"
	"github.com/kozaktomas/rollcall/internal/database/mock"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/roster"
	"github.com/kozaktomas/rollcall/internal/session"
	"github.com/kozaktomas/rollcall/internal/vision"
)

// fakeRoster knows a fixed set of groups
type fakeRoster struct {
	groups []string
	err    error
}

func (f fakeRoster) Groups(ctx context.Context) ([]string, error) { return f.groups, f.err }

func (f fakeRoster) ListImages(ctx context.Context, group string) ([]roster.Image, error) {
	return nil, nil
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func groupRequest(method, path, group string) *http.Request {
	return requestWithChiParams(httptest.NewRequest(method, path, nil), map[string]string{"group": group})
}

func newTestLedger() (*attendance.Ledger, *mock.MockLedgerStorage) {
	storage := mock.NewMockLedgerStorage()
	return attendance.NewLedger(storage), storage
}

var t0 = time.Date(2024, 9, 2, 9, 0, 1, 0, time.Local)

// frameSource yields n blank frames
type frameSource struct {
	n, next int
	closed  int
}

func (s *frameSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= s.n {
		return nil, camera.ErrEndOfStream
	}
	s.next++
	return image.NewRGBA(image.Rect(0, 0, 64, 48)), nil
}

func (s *frameSource) Close() error {
	s.closed++
	return nil
}

// oneFace finds the same face in every frame
type oneFace struct{}

func (oneFace) Detect(ctx context.Context, img image.Image) ([]vision.Face, error) {
	return []vision.Face{{Region: image.Rect(2, 2, 8, 8), Embedding: facematch.Embedding{0, 0}}}, nil
}

func (oneFace) Locate(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	return []image.Rectangle{image.Rect(2, 2, 8, 8)}, nil
}

func (oneFace) Embed(ctx context.Context, img image.Image, region image.Rectangle) (facematch.Embedding, error) {
	return facematch.Embedding{0, 0}, nil
}

type staticBuilder facematch.Registry

func (b staticBuilder) Build(ctx context.Context, group string) (facematch.Registry, error) {
	return facematch.Registry(b), nil
}

func sessionFactory(src *frameSource, ledger *attendance.Ledger) SessionFactory {
	return func(ctx context.Context, group string) (*session.Pipeline, error) {
		reg := staticBuilder{{Label: "ALICE", Embedding: facematch.Embedding{0, 0}}}
		return session.New(group, src, reg, oneFace{}, oneFace{}, ledger, session.Options{}), nil
	}
}
