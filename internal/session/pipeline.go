// Package session runs one live recognition session: it pulls frames from a
// camera source, identifies faces against the group's registry, records
// attendance and yields annotated JPEG frames.
package session

import (
	"context"
	"errors"
	"image"
	"iter"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/rollcall/internal/annotate"
	"github.com/kozaktomas/rollcall/internal/camera"
	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/vision"
	"golang.org/x/image/draw"
)

// ErrAlreadyStarted is reported when Frames is ranged over a second time.
var ErrAlreadyStarted = errors.New("session already started")

type State int32

const (
	Initializing State = iota
	Streaming
	Terminated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Streaming:
		return "streaming"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// RegistryBuilder builds the references of a group.
type RegistryBuilder interface {
	Build(ctx context.Context, group string) (facematch.Registry, error)
}

// Recorder stores the first sighting of a label in a group.
type Recorder interface {
	Record(ctx context.Context, group, label string, at time.Time) (bool, error)
}

// Frame is one processed frame.
type Frame struct {
	Index      int
	CapturedAt time.Time
	Detections []facematch.Detection
	JPEG       []byte
}

// Stats counts what a session has processed so far.
type Stats struct {
	Frames            int64 `json:"frames"`
	Faces             int64 `json:"faces"`
	Identifications   int64 `json:"identifications"`
	AttendanceWritten int64 `json:"attendance_written"`
	PersistenceErrors int64 `json:"persistence_errors"`
	VisionErrors      int64 `json:"vision_errors"`
}

type counters struct {
	frames, faces, identifications, written, persistenceErrors, visionErrors atomic.Int64
}

// Options tune a pipeline. Zero values fall back to defaults.
type Options struct {
	Threshold      float64
	DetectionScale float64
	JPEGQuality    int
	// Smoother defaults to facematch.Independent
	Smoother facematch.Smoother
	// Clock stamps captured frames, defaults to time.Now
	Clock func() time.Time
}

// Pipeline is a single-use session over one frame source.
type Pipeline struct {
	ID        string
	Group     string
	StartedAt time.Time

	source   camera.Source
	builder  RegistryBuilder
	locator  vision.Locator
	embedder vision.Embedder
	recorder Recorder

	matcher   facematch.Matcher
	scale     float64
	smoother  facematch.Smoother
	annotator *annotate.Annotator
	encoder   annotate.Encoder
	now       func() time.Time

	state     atomic.Int32
	started   atomic.Bool
	closeOnce sync.Once
	stats     counters

	mu  sync.Mutex
	err error
}

// New creates a pipeline for group. The pipeline owns source and closes it
// when the session terminates.
func New(group string, source camera.Source, builder RegistryBuilder, locator vision.Locator, embedder vision.Embedder, recorder Recorder, opts Options) *Pipeline {
	scale := opts.DetectionScale
	if scale <= 0 || scale > 1 {
		scale = constants.DefaultDetectionScale
	}
	smoother := opts.Smoother
	if smoother == nil {
		smoother = facematch.Independent{}
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		ID:        uuid.NewString(),
		Group:     group,
		StartedAt: now(),
		source:    source,
		builder:   builder,
		locator:   locator,
		embedder:  embedder,
		recorder:  recorder,
		matcher:   facematch.NewMatcher(opts.Threshold),
		scale:     scale,
		smoother:  smoother,
		annotator: annotate.New(),
		encoder:   annotate.NewEncoder(opts.JPEGQuality),
		now:       now,
	}
}

func (p *Pipeline) State() State { return State(p.state.Load()) }

func (p *Pipeline) setState(s State) { p.state.Store(int32(s)) }

// Err reports why the session terminated. It is nil after a clean end of
// stream or when the consumer stopped.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Frames:            p.stats.frames.Load(),
		Faces:             p.stats.faces.Load(),
		Identifications:   p.stats.identifications.Load(),
		AttendanceWritten: p.stats.written.Load(),
		PersistenceErrors: p.stats.persistenceErrors.Load(),
		VisionErrors:      p.stats.visionErrors.Load(),
	}
}

// Close releases the frame source. It is called when Frames returns and may
// also be called by an owner that never ranged over Frames.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.setState(Terminated)
		err = p.source.Close()
	})
	return err
}

// Frames returns the lazy sequence of processed frames. Each frame is pulled
// from the source only when the consumer asks for it. The sequence ends on
// end of stream, source failure, ctx cancellation or when the consumer stops.
func (p *Pipeline) Frames(ctx context.Context) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		if !p.started.CompareAndSwap(false, true) {
			p.fail(ErrAlreadyStarted)
			return
		}
		defer func() {
			if err := p.Close(); err != nil {
				log.Printf("session %s: closing source: %v", p.ID, err)
			}
		}()

		registry := p.initialize(ctx)
		p.setState(Streaming)

		for index := 0; ; index++ {
			img, err := p.source.Next(ctx)
			if err != nil {
				switch {
				case errors.Is(err, camera.ErrEndOfStream):
				case ctx.Err() != nil:
				default:
					log.Printf("session %s: frame source failed: %v", p.ID, err)
					p.fail(err)
				}
				return
			}

			frame, err := p.process(ctx, index, img, registry)
			if err != nil {
				log.Printf("session %s: frame %d: %v", p.ID, index, err)
				p.fail(err)
				return
			}
			if ctx.Err() != nil {
				return
			}
			if !yield(frame) {
				return
			}
		}
	}
}

func (p *Pipeline) initialize(ctx context.Context) facematch.Registry {
	p.setState(Initializing)
	registry, err := p.builder.Build(ctx, p.Group)
	if err != nil {
		log.Printf("session %s: registry for %s unavailable, every face will be %s: %v", p.ID, p.Group, constants.UnknownLabel, err)
		return nil
	}
	log.Printf("session %s: registry for %s has %d references", p.ID, p.Group, len(registry))
	return registry
}

func (p *Pipeline) process(ctx context.Context, index int, img image.Image, registry facematch.Registry) (Frame, error) {
	capturedAt := p.now()
	p.stats.frames.Add(1)

	dets := p.identify(ctx, img, registry)
	dets = p.smoother.Smooth(dets)

	for _, d := range dets {
		if !d.Result.Known {
			continue
		}
		p.stats.identifications.Add(1)
		recorded, err := p.recorder.Record(ctx, p.Group, d.Result.Label, capturedAt)
		if err != nil {
			p.stats.persistenceErrors.Add(1)
			log.Printf("session %s: attendance for %s lost: %v", p.ID, d.Result.Label, err)
			continue
		}
		if recorded {
			p.stats.written.Add(1)
			log.Printf("session %s: %s present in %s", p.ID, d.Result.Label, p.Group)
		}
	}

	annotated := p.annotator.Annotate(img, dets)
	data, err := p.encoder.Encode(annotated)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Index: index, CapturedAt: capturedAt, Detections: dets, JPEG: data}, nil
}

// identify locates faces on a downsampled copy of img and returns them in
// img's coordinates. Vision failures leave the frame without detections.
func (p *Pipeline) identify(ctx context.Context, img image.Image, registry facematch.Registry) []facematch.Detection {
	small := downsample(img, p.scale)
	faces, err := vision.Analyze(ctx, p.locator, p.embedder, small)
	if err != nil {
		if ctx.Err() == nil {
			p.stats.visionErrors.Add(1)
			log.Printf("session %s: face detection failed: %v", p.ID, err)
		}
		return nil
	}

	origin := img.Bounds().Min
	dets := make([]facematch.Detection, 0, len(faces))
	for _, f := range faces {
		region := facematch.ScaleRect(f.Region, 1/p.scale).Add(origin)
		dets = append(dets, facematch.Detection{Region: region, Result: p.matcher.Match(f.Embedding, registry)})
	}
	p.stats.faces.Add(int64(len(dets)))
	return dets
}

// downsample returns img scaled by factor with its origin at (0, 0).
func downsample(img image.Image, factor float64) *image.RGBA {
	b := img.Bounds()
	w := max(int(float64(b.Dx())*factor+0.5), 1)
	h := max(int(float64(b.Dy())*factor+0.5), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if factor == 1 {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
