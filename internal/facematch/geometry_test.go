package facematch

import (
	"image"
	"math"
	"testing"
)

func TestComputeIoU(t *testing.T) {
	tests := []struct {
		name     string
		a, b     image.Rectangle
		expected float64
	}{
		{
			name:     "identical boxes",
			a:        image.Rect(0, 0, 10, 10),
			b:        image.Rect(0, 0, 10, 10),
			expected: 1.0,
		},
		{
			name:     "no overlap",
			a:        image.Rect(0, 0, 10, 10),
			b:        image.Rect(20, 20, 30, 30),
			expected: 0.0,
		},
		{
			name:     "partial overlap",
			a:        image.Rect(0, 0, 10, 10),
			b:        image.Rect(5, 5, 15, 15),
			expected: 25.0 / 175.0, // intersection=25, union=100+100-25=175
		},
		{
			name:     "one inside other",
			a:        image.Rect(0, 0, 20, 20),
			b:        image.Rect(5, 5, 15, 15),
			expected: 100.0 / 400.0,
		},
		{
			name:     "empty rectangles",
			a:        image.Rectangle{},
			b:        image.Rectangle{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeIoU(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("ComputeIoU(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestScaleRect(t *testing.T) {
	tests := []struct {
		name     string
		r        image.Rectangle
		factor   float64
		expected image.Rectangle
	}{
		{"scale up by 4", image.Rect(10, 20, 30, 40), 4, image.Rect(40, 80, 120, 160)},
		{"scale down by quarter", image.Rect(40, 80, 120, 160), 0.25, image.Rect(10, 20, 30, 40)},
		{"identity", image.Rect(1, 2, 3, 4), 1, image.Rect(1, 2, 3, 4)},
		{"rounds to nearest", image.Rect(1, 1, 3, 3), 1.5, image.Rect(2, 2, 5, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaleRect(tt.r, tt.factor); got != tt.expected {
				t.Errorf("ScaleRect(%v, %v) = %v, want %v", tt.r, tt.factor, got, tt.expected)
			}
		})
	}
}

func TestLargest(t *testing.T) {
	tests := []struct {
		name     string
		regions  []image.Rectangle
		expected int
	}{
		{"empty", nil, -1},
		{"single", []image.Rectangle{image.Rect(0, 0, 5, 5)}, 0},
		{"second is larger", []image.Rectangle{image.Rect(0, 0, 5, 5), image.Rect(0, 0, 6, 6)}, 1},
		{"tie goes to first", []image.Rectangle{image.Rect(0, 0, 5, 5), image.Rect(10, 10, 15, 15)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Largest(tt.regions); got != tt.expected {
				t.Errorf("Largest() = %d, want %d", got, tt.expected)
			}
		})
	}
}
