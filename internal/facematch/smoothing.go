package facematch

import (
	"image"

	"github.com/kozaktomas/rollcall/internal/constants"
)

// Smoother post-processes the detections of one frame before they are drawn
// and recorded. Implementations may keep state across frames of one session.
type Smoother interface {
	Smooth(dets []Detection) []Detection
}

// Independent treats every frame on its own.
type Independent struct{}

func (Independent) Smooth(dets []Detection) []Detection { return dets }

type track struct {
	region  image.Rectangle
	history []Result
	seen    bool
}

// MajorityVote follows faces across consecutive frames by region overlap and
// reports, per face, the label that won most of the last Window results.
// Ties go to the most recent of the tied labels. A face that is not found in
// a frame loses its history.
type MajorityVote struct {
	Window int
	MinIoU float64

	tracks []*track
}

// NewMajorityVote returns a smoother over the last window results.
func NewMajorityVote(window int) *MajorityVote {
	if window < 1 {
		window = constants.DefaultSmoothingWindow
	}
	return &MajorityVote{Window: window, MinIoU: constants.IoUThreshold}
}

func (m *MajorityVote) Smooth(dets []Detection) []Detection {
	for _, t := range m.tracks {
		t.seen = false
	}

	out := make([]Detection, len(dets))
	for i, d := range dets {
		t := m.associate(d)
		t.region = d.Region
		t.seen = true
		t.history = append(t.history, d.Result)
		if len(t.history) > m.Window {
			t.history = t.history[len(t.history)-m.Window:]
		}
		out[i] = Detection{Region: d.Region, Result: vote(t.history)}
	}

	kept := m.tracks[:0]
	for _, t := range m.tracks {
		if t.seen {
			kept = append(kept, t)
		}
	}
	m.tracks = kept
	return out
}

// associate finds the unclaimed track overlapping d the most, or starts a new one.
func (m *MajorityVote) associate(d Detection) *track {
	var best *track
	bestIoU := m.MinIoU
	for _, t := range m.tracks {
		if t.seen {
			continue
		}
		if iou := ComputeIoU(t.region, d.Region); iou >= bestIoU {
			best, bestIoU = t, iou
		}
	}
	if best == nil {
		best = &track{}
		m.tracks = append(m.tracks, best)
	}
	return best
}

func vote(history []Result) Result {
	counts := make(map[string]int)
	for _, r := range history {
		counts[voteKey(r)]++
	}
	var winner Result
	winnerCount := 0
	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		if c := counts[voteKey(r)]; c > winnerCount {
			winner, winnerCount = r, c
		}
	}
	return winner
}

func voteKey(r Result) string {
	if !r.Known {
		return ""
	}
	return "+" + r.Label
}
