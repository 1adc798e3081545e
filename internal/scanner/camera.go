package scanner

import (
	"context"
	"image"
	"sync"

	"github.com/01moynul/qr-inventory/internal/apperr"
)

// Facing modes a camera can be started with.
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

// Camera is an exclusively held frame source. Every successful Start must be
// paired with exactly one Stop.
type Camera interface {
	Start(ctx context.Context, facingMode string) (<-chan image.Image, error)
	Stop() error
}

// Decoder extracts QR text from a frame. Frames without a symbol return an
// error or empty text and are skipped.
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// FrameFeed is a Camera whose frames are pushed in from outside, typically by
// a browser posting snapshots of its video stream.
type FrameFeed struct {
	mu     sync.Mutex
	frames chan image.Image
}

// NewFrameFeed returns an idle feed.
func NewFrameFeed() *FrameFeed {
	return &FrameFeed{}
}

func (f *FrameFeed) Start(_ context.Context, facingMode string) (<-chan image.Image, error) {
	switch facingMode {
	case "", FacingEnvironment, FacingUser:
	default:
		return nil, apperr.CameraUnavailable("No camera found on this device.")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frames != nil {
		return nil, apperr.CameraUnavailable("Camera is already in use by another app.")
	}
	f.frames = make(chan image.Image, 1)
	return f.frames, nil
}

func (f *FrameFeed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frames != nil {
		close(f.frames)
		f.frames = nil
	}
	return nil
}

// Push offers a frame to the running scan. It reports false when the feed is
// not started or the previous frame has not been consumed yet; dropped
// frames are normal for a live camera.
func (f *FrameFeed) Push(img image.Image) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frames == nil {
		return false
	}
	select {
	case f.frames <- img:
		return true
	default:
		return false
	}
}

// Active reports whether the feed is currently started.
func (f *FrameFeed) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames != nil
}
