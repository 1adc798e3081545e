package qrcode

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var widget = models.Item{
	ID: "1", ItemName: "Widget", SKU: "SKU1", TotalSales: "10", Quantity: "5", RowIndex: 2,
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	text, err := EncodePayload(widget)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1","itemName":"Widget","sku":"SKU1","totalSales":"10","quantity":"5"}`, text)

	payload, err := DecodePayload(text)
	require.NoError(t, err)
	assert.Equal(t, widget.Payload(), payload)
}

func TestDecodeAcceptsNumbersAndNull(t *testing.T) {
	payload, err := DecodePayload(`{"id":1,"itemName":"Widget","sku":null,"totalSales":10,"quantity":5}`)

	require.NoError(t, err)
	assert.Equal(t, "1", payload.ID)
	assert.Equal(t, "", payload.SKU)
	assert.Equal(t, "5", payload.Quantity)
}

func TestDecodeMissingFields(t *testing.T) {
	_, err := DecodePayload(`{"id":"1","itemName":"Widget","totalSales":"10"}`)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrIncompletePayload))
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []string{"sku", "quantity"}, appErr.Fields)
	assert.Contains(t, err.Error(), "sku, quantity")
}

func TestDecodeMalformed(t *testing.T) {
	for _, text := range []string{
		"",
		"not json",
		"null",
		`["1","Widget"]`,
		`{"id":"1"`,
		`{"id":{"nested":true},"itemName":"Widget","sku":"S","totalSales":"1","quantity":"1"}`,
	} {
		_, err := DecodePayload(text)
		assert.True(t, errors.Is(err, apperr.ErrMalformedPayload), "text %q", text)
	}
}

func TestLeadingInt(t *testing.T) {
	cases := map[string]int{
		"5":     5,
		" 12 ":  12,
		"7.9":   7,
		"42abc": 42,
		"-3":    -3,
		"+8":    8,
		"":      0,
		"abc":   0,
		"-":     0,

		"9223372036854775807":   9223372036854775807,
		"99999999999999999999":  0,
		"-99999999999999999999": 0,
	}
	for in, want := range cases {
		assert.Equal(t, want, LeadingInt(in), "input %q", in)
	}
}

func TestRenderAndDecodeImage(t *testing.T) {
	text, err := EncodePayload(widget)
	require.NoError(t, err)

	data, err := RenderPNG(text, 256)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())

	decoded, err := NewImageDecoder().Decode(img)
	require.NoError(t, err)
	assert.Equal(t, text, decoded)
}

func TestDecodeBlankImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	_, err := NewImageDecoder().Decode(img)
	assert.True(t, errors.Is(err, ErrNoCode))

	_, err = NewImageDecoder().Decode(nil)
	assert.True(t, errors.Is(err, ErrNoCode))
}
