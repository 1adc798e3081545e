package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/qrcode"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

// UpdateQuantityInput is the body of PUT /v1/items/:id/quantity.
type UpdateQuantityInput struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetItems handles GET /v1/items
func (h *Handlers) GetItems(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	items, err := h.Catalog.FetchAll(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetItem handles GET /v1/items/:id
func (h *Handlers) GetItem(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	item, err := h.Catalog.GetItemByID(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// UpdateItemQuantity handles PUT /v1/items/:id/quantity
// The value is written as given; the caller computes it.
func (h *Handlers) UpdateItemQuantity(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var input UpdateQuantityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Catalog.UpdateQuantity(c.Request.Context(), sess, c.Param("id"), *input.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Updated item %s quantity to %d", result.ItemID, result.NewQuantity),
		"result":  result,
	})
}

// GetItemPayload handles GET /v1/items/:id/payload
// It returns the text a QR code for the item encodes.
func (h *Handlers) GetItemPayload(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	item, err := h.Catalog.GetItemByID(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	payload, err := qrcode.EncodePayload(item)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item, "payload": payload})
}

// GetItemQRCode handles GET /v1/items/:id/qr.png
// Optional ?size= overrides the configured edge length (64-1024 px).
func (h *Handlers) GetItemQRCode(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	size := h.QRCodeSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > 1024 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 64 and 1024"})
			return
		}
		size = n
	}

	item, err := h.Catalog.GetItemByID(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	payload, err := qrcode.EncodePayload(item)
	if err != nil {
		h.fail(c, err)
		return
	}
	png, err := qrcode.RenderPNG(payload, size)
	if err != nil {
		h.fail(c, err)
		return
	}

	filename := fmt.Sprintf("QR_%s_%s.png", slug.Make(item.SKU), slug.Make(item.ItemName))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "image/png", png)
}

// ValidateSheet handles GET /v1/sheet/validate
func (h *Handlers) ValidateSheet(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	err := h.Catalog.ValidateStructure(c.Request.Context(), sess)
	if errors.Is(err, apperr.ErrInvalidSheet) {
		body := apperr.Response(err)
		body["valid"] = false
		c.JSON(apperr.HTTPStatus(err), body)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}
