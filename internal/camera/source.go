// Package camera provides frame sources for a session: a local capture
// device, an ffmpeg MJPEG pipe and a directory replay.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrEndOfStream is returned by Next when a finite source has no more frames.
var ErrEndOfStream = errors.New("end of stream")

// ErrSourceFailure marks a source that cannot be opened or stopped delivering frames.
var ErrSourceFailure = errors.New("frame source failure")

// Source yields frames in capture order. Next blocks until a frame is
// available. Close releases the underlying device and is safe to call more
// than once.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

func failure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSourceFailure, fmt.Sprintf(format, args...))
}

func failureErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSourceFailure, op, err)
}
