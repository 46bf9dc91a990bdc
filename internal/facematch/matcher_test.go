package facematch

import (
	"math"
	"testing"
)

// emb builds a 2-dimensional embedding at distance d from the origin.
func emb(d float64) Embedding {
	return Embedding{float32(d), 0}
}

var origin = Embedding{0, 0}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Embedding
		expected float64
	}{
		{"identical", Embedding{1, 2, 3}, Embedding{1, 2, 3}, 0},
		{"3-4-5 triangle", Embedding{0, 0}, Embedding{3, 4}, 5},
		{"negative components", Embedding{-1, -1}, Embedding{1, 1}, math.Sqrt(8)},
		{"empty", Embedding{}, Embedding{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EuclideanDistance(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 1e-6 {
				t.Errorf("EuclideanDistance(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestEuclideanDistance_LengthMismatch(t *testing.T) {
	if d := EuclideanDistance(Embedding{1, 2}, Embedding{1, 2, 3}); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for mismatched lengths, got %v", d)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		registry  Registry
		threshold float64
		wantKnown bool
		wantLabel string
		wantDist  float64
	}{
		{
			name: "closest below threshold is identified",
			registry: Registry{
				{Label: "ALICE", Embedding: emb(0.30)},
				{Label: "BOB", Embedding: emb(0.61)},
			},
			threshold: 0.50,
			wantKnown: true,
			wantLabel: "ALICE",
			wantDist:  0.30,
		},
		{
			name: "all above threshold is unknown",
			registry: Registry{
				{Label: "ALICE", Embedding: emb(0.55)},
				{Label: "BOB", Embedding: emb(0.80)},
			},
			threshold: 0.50,
			wantKnown: false,
		},
		{
			name:      "distance equal to threshold is unknown",
			registry:  Registry{{Label: "ALICE", Embedding: emb(0.5)}},
			threshold: 0.5,
			wantKnown: false,
		},
		{
			name:      "empty registry is unknown",
			registry:  Registry{},
			threshold: 0.50,
			wantKnown: false,
		},
		{
			name:      "nil registry is unknown",
			registry:  nil,
			threshold: 0.50,
			wantKnown: false,
		},
		{
			name: "first reference wins ties",
			registry: Registry{
				{Label: "CAROL", Embedding: emb(0.7)},
				{Label: "ALICE", Embedding: emb(0.2)},
				{Label: "BOB", Embedding: Embedding{0, 0.2}},
			},
			threshold: 0.50,
			wantKnown: true,
			wantLabel: "ALICE",
			wantDist:  0.2,
		},
		{
			name: "duplicate labels tolerated",
			registry: Registry{
				{Label: "ALICE", Embedding: emb(0.4)},
				{Label: "ALICE", Embedding: emb(0.1)},
			},
			threshold: 0.50,
			wantKnown: true,
			wantLabel: "ALICE",
			wantDist:  0.1,
		},
		{
			name:      "mismatched embedding length never matches",
			registry:  Registry{{Label: "ALICE", Embedding: Embedding{0, 0, 0}}},
			threshold: 0.50,
			wantKnown: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.threshold)
			result := m.Match(origin, tt.registry)
			if result.Known != tt.wantKnown {
				t.Fatalf("Known = %v, want %v (result %+v)", result.Known, tt.wantKnown, result)
			}
			if !tt.wantKnown {
				if result.DisplayLabel() != "Unknown" {
					t.Errorf("expected display label 'Unknown', got '%s'", result.DisplayLabel())
				}
				return
			}
			if result.Label != tt.wantLabel {
				t.Errorf("Label = %s, want %s", result.Label, tt.wantLabel)
			}
			if math.Abs(result.Distance-tt.wantDist) > 1e-6 {
				t.Errorf("Distance = %v, want %v", result.Distance, tt.wantDist)
			}
		})
	}
}

func TestMatch_Deterministic(t *testing.T) {
	registry := Registry{
		{Label: "ALICE", Embedding: Embedding{0.1, 0.2, 0.3}},
		{Label: "BOB", Embedding: Embedding{0.3, 0.2, 0.1}},
	}
	q := Embedding{0.12, 0.21, 0.28}
	m := NewMatcher(0.5)

	first := m.Match(q, registry)
	for range 100 {
		if got := m.Match(q, registry); got != first {
			t.Fatalf("non-deterministic match: %+v vs %+v", got, first)
		}
	}
}

func TestNewMatcher_DefaultThreshold(t *testing.T) {
	if m := NewMatcher(0); m.Threshold != 0.50 {
		t.Errorf("expected default threshold 0.50, got %v", m.Threshold)
	}
	if m := NewMatcher(0.6); m.Threshold != 0.6 {
		t.Errorf("expected threshold 0.6, got %v", m.Threshold)
	}
}

func TestDistances_Order(t *testing.T) {
	registry := Registry{
		{Label: "A", Embedding: emb(0.3)},
		{Label: "B", Embedding: emb(0.1)},
	}
	d := Distances(origin, registry)
	if len(d) != 2 {
		t.Fatalf("expected 2 distances, got %d", len(d))
	}
	if math.Abs(d[0]-0.3) > 1e-6 || math.Abs(d[1]-0.1) > 1e-6 {
		t.Errorf("unexpected distances %v", d)
	}
}

func TestRegistryLabels(t *testing.T) {
	r := Registry{{Label: "A"}, {Label: "B"}}
	labels := r.Labels()
	if len(labels) != 2 || labels[0] != "A" || labels[1] != "B" {
		t.Errorf("unexpected labels %v", labels)
	}
}
