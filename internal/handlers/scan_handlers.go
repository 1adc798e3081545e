package handlers

import (
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/auth"
	"github.com/01moynul/qr-inventory/internal/qrcode"
	"github.com/01moynul/qr-inventory/internal/scanner"
	"github.com/gin-gonic/gin"
)

// ScanInput carries QR text decoded by the client.
type ScanInput struct {
	Payload string `json:"payload" binding:"required"`
}

// StartScannerInput selects the camera to scan with.
type StartScannerInput struct {
	FacingMode string `json:"facingMode"`
}

func (h *Handlers) scannerFor(sess *auth.Session) *scanner.Entry {
	return h.Scanners.Get(sess.ID, h.Catalog.Bind(sess))
}

// ScanPayload handles POST /v1/scan
// The text is reconciled exactly as if the server had decoded it from a frame.
func (h *Handlers) ScanPayload(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var input ScanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.scannerFor(sess).Scanner.Submit(c.Request.Context(), input.Payload)
	h.writeScan(c, res)
}

// ScanImage handles POST /v1/scan/image
// It accepts a PNG or JPEG photo of a code in the "file" form field.
func (h *Handlers) ScanImage(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	img, ok := formImage(c, "file")
	if !ok {
		return
	}

	text, err := h.Decoder.Decode(img)
	if err != nil {
		if errors.Is(err, qrcode.ErrNoCode) {
			err = apperr.MalformedPayload("No QR code found in image", err)
		}
		h.fail(c, err)
		return
	}

	res := h.scannerFor(sess).Scanner.Submit(c.Request.Context(), text)
	h.writeScan(c, res)
}

// GetScanner handles GET /v1/scanner
func (h *Handlers) GetScanner(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	entry, found := h.Scanners.Lookup(sess.ID)
	if !found {
		c.JSON(http.StatusOK, scanner.Result{State: scanner.StateIdle})
		return
	}
	h.writeScan(c, entry.Scanner.Snapshot())
}

// StartScanner handles POST /v1/scanner/start
// Frames are then posted to /v1/scanner/frames until the scan finishes.
func (h *Handlers) StartScanner(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var input StartScannerInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if input.FacingMode == "" {
		input.FacingMode = scanner.FacingEnvironment
	}

	entry := h.scannerFor(sess)
	if err := entry.Scanner.Start(input.FacingMode); err != nil {
		h.writeScan(c, entry.Scanner.Snapshot())
		return
	}
	c.JSON(http.StatusAccepted, entry.Scanner.Snapshot())
}

// PushFrame handles POST /v1/scanner/frames
// A frame arriving while the decoder is still busy is dropped.
func (h *Handlers) PushFrame(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	entry, found := h.Scanners.Lookup(sess.ID)
	if !found || !entry.Feed.Active() {
		h.fail(c, apperr.CameraUnavailable("Scanner is not running. Start a scan first."))
		return
	}

	img, ok := formImage(c, "frame")
	if !ok {
		return
	}

	accepted := entry.Feed.Push(img)
	c.JSON(http.StatusOK, gin.H{
		"accepted": accepted,
		"state":    entry.Scanner.Snapshot().State,
	})
}

// StopScanner handles POST /v1/scanner/stop
func (h *Handlers) StopScanner(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	if entry, found := h.Scanners.Lookup(sess.ID); found {
		entry.Scanner.Stop()
	}
	c.JSON(http.StatusOK, scanner.Result{State: scanner.StateIdle})
}

// ResetScanner handles POST /v1/scanner/reset
func (h *Handlers) ResetScanner(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	if entry, found := h.Scanners.Lookup(sess.ID); found {
		entry.Scanner.Reset()
	}
	c.JSON(http.StatusOK, scanner.Result{State: scanner.StateIdle})
}

// writeScan renders a scan result. Failed scans carry the error body next
// to the state so the UI can show both.
func (h *Handlers) writeScan(c *gin.Context, res scanner.Result) {
	if res.Err == nil {
		c.JSON(http.StatusOK, res)
		return
	}
	if rejectedToken(res.Err) {
		h.fail(c, res.Err)
		return
	}

	body := apperr.Response(res.Err)
	body["state"] = res.State
	if res.Item != nil {
		body["item"] = res.Item
	}
	c.JSON(apperr.HTTPStatus(res.Err), body)
}

func formImage(c *gin.Context, field string) (image.Image, bool) {
	// 1. Get the file from the request
	header, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No " + field + " uploaded"})
		return nil, false
	}

	// 2. Decode it
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read " + field})
		return nil, false
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported image format"})
		return nil, false
	}
	return img, true
}
