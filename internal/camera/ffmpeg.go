package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

const maxFrameSize = 32 << 20

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// SplitJPEG is a bufio.SplitFunc that yields one JPEG image per token from a
// concatenated MJPEG stream. Bytes before the first start-of-image marker are
// discarded.
func SplitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		// keep a trailing 0xFF, it may be the first half of a marker
		if n := len(data); n > 0 && data[n-1] == 0xFF {
			return n - 1, nil, nil
		}
		return len(data), nil, nil
	}
	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	end += start + len(jpegSOI) + len(jpegEOI)
	return end, data[start:end], nil
}

// FFmpegArgs returns the ffmpeg arguments that decode input and write MJPEG
// frames to stdout.
func FFmpegArgs(input string, width, height, fps int) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", input}
	var filters []string
	if fps > 0 {
		filters = append(filters, "fps="+strconv.Itoa(fps))
	}
	if width > 0 && height > 0 {
		filters = append(filters, "scale="+strconv.Itoa(width)+":"+strconv.Itoa(height))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	return append(args, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

// Pipe decodes JPEG frames from the stdout of an external process.
type Pipe struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	stdout  io.ReadCloser
	scanner *bufio.Scanner
	stderr  *tailBuffer

	once    sync.Once
	waitErr error
}

// OpenFFmpeg starts ffmpeg on input.
func OpenFFmpeg(ctx context.Context, input string, width, height, fps int) (*Pipe, error) {
	return OpenPipe(ctx, "ffmpeg", FFmpegArgs(input, width, height, fps)...)
}

// OpenPipe starts name with args and reads MJPEG from its stdout.
func OpenPipe(ctx context.Context, name string, args ...string) (*Pipe, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, failureErr("stdout pipe", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, failureErr("start "+name, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 1<<20), maxFrameSize)
	scanner.Split(SplitJPEG)

	return &Pipe{cmd: cmd, cancel: cancel, stdout: stdout, scanner: scanner, stderr: stderr}, nil
}

func (p *Pipe) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.scanner.Scan() {
		scanErr := p.scanner.Err()
		waitErr := p.wait()
		switch {
		case scanErr != nil:
			return nil, failureErr("read frame", scanErr)
		case waitErr != nil:
			if msg := strings.TrimSpace(p.stderr.String()); msg != "" {
				return nil, failureErr(msg, waitErr)
			}
			return nil, failureErr("decoder exited", waitErr)
		}
		return nil, ErrEndOfStream
	}
	img, err := jpeg.Decode(bytes.NewReader(p.scanner.Bytes()))
	if err != nil {
		return nil, failureErr("decode frame", err)
	}
	return img, nil
}

func (p *Pipe) wait() error {
	p.once.Do(func() {
		p.waitErr = p.cmd.Wait()
		p.cancel()
	})
	return p.waitErr
}

func (p *Pipe) Close() error {
	p.cancel()
	err := p.wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// killed by cancel
		return nil
	}
	return err
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
