package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/camera"
	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/database/cassandra"
	"github.com/kozaktomas/rollcall/internal/database/csvfile"
	"github.com/kozaktomas/rollcall/internal/database/postgres"
	"github.com/kozaktomas/rollcall/internal/database/redisstore"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/registry"
	"github.com/kozaktomas/rollcall/internal/roster"
	"github.com/kozaktomas/rollcall/internal/session"
	"github.com/kozaktomas/rollcall/internal/vision"
	"github.com/kozaktomas/rollcall/internal/vision/dlib"
	"github.com/kozaktomas/rollcall/internal/vision/remote"
)

// backends holds everything a command needs that must be closed on exit.
type backends struct {
	cfg     *config.Config
	roster  roster.Store
	ledger  *attendance.Ledger
	vision  vision.Backend
	cache   database.EmbeddingCache
	closers []func() error
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			fmt.Printf("Warning: closing backend: %v\n", err)
		}
	}
}

// openBackends connects the configured storage. The vision backend is only
// loaded when withVision is set since the dlib models take a while to load.
func openBackends(ctx context.Context, cfg *config.Config, withVision bool) (*backends, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	b := &backends{cfg: cfg, roster: roster.NewDirStore(cfg.Roster.Dir)}

	var pool *postgres.Pool
	if cfg.Ledger.Backend == "postgres" || cfg.Database.EmbeddingCache {
		fmt.Printf("Connecting to PostgreSQL database...\n")
		p, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		pool = p
		b.closers = append(b.closers, p.Close)
	}

	storage, err := openLedgerStorage(ctx, cfg, pool, b)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.ledger = attendance.NewLedger(storage)

	if cfg.Database.EmbeddingCache {
		b.cache = postgres.NewEmbeddingRepository(pool)
	}

	if withVision {
		backend, err := openVision(cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.vision = backend
		b.closers = append(b.closers, backend.Close)
	}
	return b, nil
}

func openLedgerStorage(ctx context.Context, cfg *config.Config, pool *postgres.Pool, b *backends) (database.LedgerStorage, error) {
	switch cfg.Ledger.Backend {
	case "postgres":
		fmt.Printf("Using PostgreSQL attendance ledger\n")
		return postgres.NewAttendanceRepository(pool), nil
	case "redis":
		store, err := redisstore.Connect(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		b.closers = append(b.closers, store.Close)
		fmt.Printf("Using Redis attendance ledger at %s\n", cfg.Redis.Addr)
		return store, nil
	case "cassandra":
		store, err := cassandra.Connect(ctx, &cfg.Cassandra)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
		}
		b.closers = append(b.closers, store.Close)
		fmt.Printf("Using Cassandra attendance ledger (keyspace %s)\n", cfg.Cassandra.Keyspace)
		return store, nil
	default:
		store, err := csvfile.New(cfg.Ledger.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open attendance directory: %w", err)
		}
		return store, nil
	}
}

func openVision(cfg *config.Config) (vision.Backend, error) {
	switch cfg.Vision.Backend {
	case "remote":
		fmt.Printf("Using embedding service at %s\n", cfg.Vision.URL)
		return remote.New(cfg.Vision.URL), nil
	default:
		fmt.Printf("Loading dlib models from %s...\n", cfg.Vision.ModelsDir)
		backend, err := dlib.New(cfg.Vision.ModelsDir, cfg.Vision.CNN)
		if err != nil {
			return nil, fmt.Errorf("failed to load dlib models: %w", err)
		}
		return backend, nil
	}
}

func openCamera(ctx context.Context, cfg config.CameraConfig) (camera.Source, error) {
	switch cfg.Driver {
	case "ffmpeg":
		return camera.OpenFFmpeg(ctx, cfg.Input, cfg.Width, cfg.Height, cfg.FPS)
	case "dir":
		return camera.OpenDir(cfg.Input)
	default:
		return camera.OpenDevice(cfg.Device, cfg.Width, cfg.Height)
	}
}

func (b *backends) registryBuilder(onProgress func(done, total int)) *registry.Builder {
	return &registry.Builder{
		Store:      b.roster,
		Locator:    b.vision,
		Embedder:   b.vision,
		Policy:     registry.Policy(b.cfg.Recognition.MultiFacePolicy),
		Cache:      b.cache,
		Model:      b.vision.Model(),
		OnProgress: onProgress,
	}
}

func (b *backends) sessionOptions() session.Options {
	r := b.cfg.Recognition
	opts := session.Options{
		Threshold:      r.Threshold,
		DetectionScale: r.DetectionScale,
		JPEGQuality:    r.JPEGQuality,
	}
	if r.Smoothing == "majority" {
		opts.Smoother = facematch.NewMajorityVote(r.SmoothingWindow)
	}
	return opts
}

// newSession opens the camera and prepares a pipeline for group. Every
// session gets its own smoother state.
func (b *backends) newSession(ctx context.Context, group string) (*session.Pipeline, error) {
	src, err := openCamera(ctx, b.cfg.Camera)
	if err != nil {
		return nil, err
	}
	return session.New(group, src, b.registryBuilder(nil), b.vision, b.vision, b.ledger, b.sessionOptions()), nil
}
