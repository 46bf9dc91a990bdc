package camera

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

var frameExtensions = []string{".jpg", ".jpeg", ".png"}

// Dir replays the images of a directory in name order, then reports
// ErrEndOfStream.
type Dir struct {
	mu     sync.Mutex
	paths  []string
	next   int
	closed bool
}

// OpenDir lists the frames in dir.
func OpenDir(dir string) (*Dir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, failureErr("read frame directory", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if slices.Contains(frameExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)
	return &Dir{paths: paths}, nil
}

// Len returns the number of frames in the directory.
func (d *Dir) Len() int { return len(d.paths) }

func (d *Dir) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, failure("directory source closed")
	}
	if d.next >= len(d.paths) {
		return nil, ErrEndOfStream
	}
	path := d.paths[d.next]
	d.next++
	img, err := imaging.Open(path)
	if err != nil {
		return nil, failureErr("read "+filepath.Base(path), err)
	}
	return img, nil
}

func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
