package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"math"
	"sync"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/metrics"
	"github.com/01moynul/qr-inventory/internal/models"
	"github.com/01moynul/qr-inventory/internal/qrcode"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// State is a step of the scan workflow.
type State string

const (
	StateIdle        State = "idle"
	StateScanning    State = "scanning"
	StateDecoding    State = "decoding"
	StateReconciling State = "reconciling"
	StateSuccess     State = "success"
	StateFailed      State = "failed"
)

// QuantityWriter persists the incremented quantity for an item.
type QuantityWriter interface {
	UpdateQuantity(ctx context.Context, itemID string, newQuantity int) (models.UpdateResult, error)
}

// Result is what the UI renders for the current scan.
type Result struct {
	State       State
	Item        *models.ScanPayload
	OldQuantity int
	NewQuantity int
	RowNumber   int
	Err         error
}

type resultJSON struct {
	State       State               `json:"state"`
	Item        *models.ScanPayload `json:"item,omitempty"`
	OldQuantity *int                `json:"oldQuantity,omitempty"`
	NewQuantity *int                `json:"newQuantity,omitempty"`
	RowNumber   *int                `json:"rowNumber,omitempty"`
}

// MarshalJSON always reports both quantities once they are known, zero
// included. The row is only known after a successful write.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{State: r.State, Item: r.Item}
	switch r.State {
	case StateReconciling:
		out.OldQuantity, out.NewQuantity = &r.OldQuantity, &r.NewQuantity
	case StateSuccess:
		out.OldQuantity, out.NewQuantity, out.RowNumber = &r.OldQuantity, &r.NewQuantity, &r.RowNumber
	}
	return json.Marshal(out)
}

// Scanner runs one single-shot scan at a time: acquire the camera, decode
// frames until one yields a payload, release the camera, then add one unit
// to the scanned item's quantity.
//
// Each Start or Submit opens a new cycle. Completions that arrive for an
// abandoned cycle are dropped, so Stop always wins over an in-flight scan.
// A quantity write that has already been issued is not cancelled; it runs to
// completion and only its result is discarded.
type Scanner struct {
	camera  Camera
	decoder Decoder
	writer  QuantityWriter
	limiter *rate.Limiter
	log     *zap.Logger

	mu      sync.Mutex
	cycle   uint64
	result  Result
	release func()
	done    chan struct{}
}

// New creates an idle scanner. fps caps how many frames per second are
// handed to the decoder; zero or less means no cap.
func New(camera Camera, decoder Decoder, writer QuantityWriter, fps int, log *zap.Logger) *Scanner {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if fps > 0 {
		limiter = rate.NewLimiter(rate.Limit(fps), 1)
	}
	return &Scanner{
		camera:  camera,
		decoder: decoder,
		writer:  writer,
		limiter: limiter,
		log:     log,
		result:  Result{State: StateIdle},
	}
}

// Snapshot returns the current state and result.
func (s *Scanner) Snapshot() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Start discards any current scan or result and begins scanning. A camera
// that cannot be acquired moves the scanner to Failed with CameraUnavailable.
func (s *Scanner) Start(facingMode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abortLocked()
	cycle := s.beginLocked()

	ctx, cancel := context.WithCancel(context.Background())
	frames, err := s.camera.Start(ctx, facingMode)
	if err != nil {
		cancel()
		err = cameraError(err)
		s.log.Warn("Camera unavailable", zap.String("facingMode", facingMode), zap.Error(err))
		s.finishLocked(cycle, Result{State: StateFailed, Err: err})
		return err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			if err := s.camera.Stop(); err != nil {
				s.log.Warn("Failed to release camera", zap.Error(err))
			}
		})
	}
	s.release = release
	s.result = Result{State: StateScanning}

	go s.run(ctx, cycle, frames, release)
	return nil
}

// Submit reconciles text that was already decoded elsewhere, entering the
// workflow at Decoding. It blocks until the write finishes and returns the
// outcome even if the scan was stopped meanwhile.
func (s *Scanner) Submit(ctx context.Context, text string) Result {
	s.mu.Lock()
	s.abortLocked()
	cycle := s.beginLocked()
	s.mu.Unlock()

	return s.reconcile(context.WithoutCancel(ctx), cycle, text)
}

// Stop releases the camera, discards the current result and returns to Idle.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortLocked()
	s.result = Result{State: StateIdle}
}

// Reset clears a finished result so the UI is ready for the next scan.
func (s *Scanner) Reset() {
	s.Stop()
}

// Wait blocks until the current cycle reaches Success, Failed or Idle.
func (s *Scanner) Wait(ctx context.Context) (Result, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return s.Snapshot(), nil
	}
	select {
	case <-done:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

func (s *Scanner) run(ctx context.Context, cycle uint64, frames <-chan image.Image, release func()) {
	defer release()

	for {
		select {
		case <-ctx.Done():
			return
		case img, ok := <-frames:
			if !ok {
				s.finish(cycle, Result{
					State: StateFailed,
					Err:   apperr.CameraUnavailable("Camera stream ended unexpectedly."),
				})
				return
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			text, err := s.decoder.Decode(img)
			if err != nil || text == "" {
				continue
			}

			// Single shot: the camera is released before the write.
			release()
			s.reconcile(context.WithoutCancel(ctx), cycle, text)
			return
		}
	}
}

func (s *Scanner) reconcile(ctx context.Context, cycle uint64, text string) Result {
	if !s.transition(cycle, Result{State: StateDecoding}) {
		return Result{State: StateIdle}
	}

	payload, err := qrcode.DecodePayload(text)
	if err != nil {
		res := Result{State: StateFailed, Err: err}
		s.finish(cycle, res)
		return res
	}

	// One scan adds exactly one unit.
	oldQuantity := qrcode.LeadingInt(payload.Quantity)
	if oldQuantity == math.MaxInt {
		res := Result{State: StateFailed, Item: &payload, Err: apperr.MalformedPayload("Quantity is out of range", nil)}
		s.finish(cycle, res)
		return res
	}
	newQuantity := oldQuantity + 1

	pending := Result{State: StateReconciling, Item: &payload, OldQuantity: oldQuantity, NewQuantity: newQuantity}
	if !s.transition(cycle, pending) {
		return Result{State: StateIdle}
	}

	update, err := s.writer.UpdateQuantity(ctx, payload.ID, newQuantity)
	if err != nil {
		res := Result{State: StateFailed, Item: &payload, Err: err}
		s.finish(cycle, res)
		return res
	}

	res := Result{
		State:       StateSuccess,
		Item:        &payload,
		OldQuantity: oldQuantity,
		NewQuantity: newQuantity,
		RowNumber:   update.RowNumber,
	}
	s.finish(cycle, res)
	return res
}

func (s *Scanner) beginLocked() uint64 {
	s.cycle++
	s.done = make(chan struct{})
	return s.cycle
}

// abortLocked ends the current cycle and releases the camera if held.
func (s *Scanner) abortLocked() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
	s.cycle++
	s.closeDoneLocked()
}

func (s *Scanner) closeDoneLocked() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

func (s *Scanner) transition(cycle uint64, res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cycle != s.cycle {
		return false
	}
	s.result = res
	return true
}

func (s *Scanner) finish(cycle uint64, res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(cycle, res)
}

func (s *Scanner) finishLocked(cycle uint64, res Result) {
	if cycle != s.cycle {
		return
	}
	s.result = res
	s.closeDoneLocked()

	outcome := "success"
	if res.Err != nil {
		outcome = metrics.Outcome(res.Err)
	}
	metrics.Scans.WithLabelValues(outcome).Inc()

	fields := []zap.Field{zap.String("state", string(res.State))}
	if res.Item != nil {
		fields = append(fields, zap.String("itemId", res.Item.ID))
	}
	if res.Err != nil {
		s.log.Warn("Scan failed", append(fields, zap.Error(res.Err))...)
		return
	}
	s.log.Info("Scan reconciled", append(fields,
		zap.Int("oldQuantity", res.OldQuantity),
		zap.Int("newQuantity", res.NewQuantity),
	)...)
}

func cameraError(err error) error {
	if errors.Is(err, apperr.ErrCameraUnavailable) {
		return err
	}
	return &apperr.Error{Kind: apperr.KindCameraUnavailable, Message: "Failed to start camera.", Err: err}
}
