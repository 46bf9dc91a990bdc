// Package remote talks to an HTTP face-embedding service that exposes
// POST /embed/face (multipart "file") and answers with every detected face.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/vision"
)

const defaultEmbeddingURL = "http://localhost:8000"

// Client computes face embeddings using the embedding server
type Client struct {
	baseURL string
	client  *http.Client

	mu    sync.RWMutex
	model string // reported by the server, set after the first response
}

// New creates a new embedding client
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		model:   "remote",
	}
}

// faceDetection represents a single detected face
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postImage posts a JPEG as multipart form field "file" and returns the body.
func (c *Client) postImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func (c *Client) faces(ctx context.Context, img image.Image) ([]vision.Face, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	body, err := c.postImage(ctx, "/embed/face", buf.Bytes())
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if faceResp.Model != "" {
		c.mu.Lock()
		c.model = faceResp.Model
		c.mu.Unlock()
	}

	origin := img.Bounds().Min
	faces := make([]vision.Face, 0, len(faceResp.Faces))
	for _, f := range faceResp.Faces {
		if len(f.BBox) != 4 || len(f.Embedding) == 0 {
			continue
		}
		region := image.Rect(
			int(math.Floor(f.BBox[0])), int(math.Floor(f.BBox[1])),
			int(math.Ceil(f.BBox[2])), int(math.Ceil(f.BBox[3])),
		)
		faces = append(faces, vision.Face{
			Region:    region.Add(origin),
			Embedding: facematch.Embedding(f.Embedding),
		})
	}
	return faces, nil
}

// Model returns the model name reported by the server
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Detect returns every face the server found, in the server's order.
func (c *Client) Detect(ctx context.Context, img image.Image) ([]vision.Face, error) {
	return c.faces(ctx, img)
}

func (c *Client) Locate(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	faces, err := c.faces(ctx, img)
	if err != nil {
		return nil, err
	}
	regions := make([]image.Rectangle, len(faces))
	for i, f := range faces {
		regions[i] = f.Region
	}
	return regions, nil
}

// Embed sends a padded crop of region and keeps the largest face found in it.
func (c *Client) Embed(ctx context.Context, img image.Image, region image.Rectangle) (facematch.Embedding, error) {
	crop, ok := vision.CropFace(img, region)
	if !ok {
		return nil, vision.ErrNoFace
	}
	faces, err := c.faces(ctx, crop)
	if err != nil {
		return nil, err
	}
	regions := make([]image.Rectangle, len(faces))
	for i, f := range faces {
		regions[i] = f.Region
	}
	best := facematch.Largest(regions)
	if best < 0 {
		return nil, vision.ErrNoFace
	}
	return faces[best].Embedding, nil
}
