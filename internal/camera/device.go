package camera

import (
	"context"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Device reads frames from a local capture device through OpenCV.
type Device struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// OpenDevice opens capture device id and requests width x height frames.
// Zero dimensions keep the device default.
func OpenDevice(id, width, height int) (*Device, error) {
	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, failureErr("open device", err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, failure("device %d is not available", id)
	}
	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &Device{cap: vc, mat: gocv.NewMat()}, nil
}

func (d *Device) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, failure("device closed")
	}
	if ok := d.cap.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, failure("device returned no frame")
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, failureErr("convert frame", err)
	}
	return img, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.mat.Close()
	return d.cap.Close()
}
