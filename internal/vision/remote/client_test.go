package remote

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/rollcall/internal/vision"
)

func newTestServer(t *testing.T, resp faceResponse, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
		} else {
			if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
				t.Errorf("expected image/jpeg part, got %s", ct)
			}
			if _, err := jpeg.Decode(file); err != nil {
				t.Errorf("expected a JPEG upload: %v", err)
			}
		}
		if status != http.StatusOK {
			http.Error(w, "model not loaded", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 64, 48))
}

func TestDetect(t *testing.T) {
	srv := newTestServer(t, faceResponse{
		FacesCount: 3,
		Model:      "buffalo_l",
		Faces: []faceDetection{
			{FaceIndex: 0, Embedding: []float32{0.1, 0.2}, BBox: []float64{1.2, 2.7, 10.1, 12}},
			{FaceIndex: 1, Embedding: []float32{0.3, 0.4}, BBox: []float64{20, 5, 30, 15}},
			{FaceIndex: 2, Embedding: nil, BBox: []float64{40, 5, 45, 10}},
		},
	}, http.StatusOK)
	defer srv.Close()

	c := New(srv.URL + "/")
	faces, err := c.Detect(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("expected 2 faces (one without embedding dropped), got %d", len(faces))
	}
	if faces[0].Region != image.Rect(1, 2, 11, 12) {
		t.Errorf("expected region rounded outwards, got %v", faces[0].Region)
	}
	if c.Model() != "buffalo_l" {
		t.Errorf("expected model from response, got %s", c.Model())
	}
}

func TestLocate(t *testing.T) {
	srv := newTestServer(t, faceResponse{
		Faces: []faceDetection{{Embedding: []float32{1}, BBox: []float64{0, 0, 8, 8}}},
	}, http.StatusOK)
	defer srv.Close()

	regions, err := New(srv.URL).Locate(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if len(regions) != 1 || regions[0] != image.Rect(0, 0, 8, 8) {
		t.Errorf("unexpected regions %v", regions)
	}
}

func TestEmbed_PicksLargestFace(t *testing.T) {
	srv := newTestServer(t, faceResponse{
		Faces: []faceDetection{
			{Embedding: []float32{1}, BBox: []float64{0, 0, 4, 4}},
			{Embedding: []float32{2}, BBox: []float64{5, 5, 20, 20}},
		},
	}, http.StatusOK)
	defer srv.Close()

	emb, err := New(srv.URL).Embed(context.Background(), testImage(), image.Rect(10, 10, 30, 30))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(emb) != 1 || emb[0] != 2 {
		t.Errorf("expected embedding of the largest face, got %v", emb)
	}
}

func TestEmbed_NoFace(t *testing.T) {
	srv := newTestServer(t, faceResponse{}, http.StatusOK)
	defer srv.Close()

	_, err := New(srv.URL).Embed(context.Background(), testImage(), image.Rect(10, 10, 30, 30))
	if !errors.Is(err, vision.ErrNoFace) {
		t.Errorf("expected ErrNoFace, got %v", err)
	}
}

func TestDetect_ServerError(t *testing.T) {
	srv := newTestServer(t, faceResponse{}, http.StatusServiceUnavailable)
	defer srv.Close()

	_, err := New(srv.URL).Detect(context.Background(), testImage())
	if err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Errorf("expected status error, got %v", err)
	}
}
