package qrcode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/models"
)

// RequiredFields are the payload keys, in wire order.
var RequiredFields = []string{"id", "itemName", "sku", "totalSales", "quantity"}

// EncodePayload serializes the QR subset of item as a JSON object.
func EncodePayload(item models.Item) (string, error) {
	data, err := json.Marshal(item.Payload())
	if err != nil {
		return "", fmt.Errorf("failed to encode item data for QR code: %w", err)
	}
	return string(data), nil
}

// DecodePayload parses scanned text back into a payload. Text that is not a
// JSON object yields MalformedPayload; absent keys yield IncompletePayload
// naming each of them. Numbers are accepted and kept in their literal form,
// null reads as an empty string.
func DecodePayload(text string) (models.ScanPayload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil || raw == nil {
		return models.ScanPayload{}, apperr.MalformedPayload("Invalid QR code format", err)
	}

	var missing []string
	values := make(map[string]string, len(RequiredFields))
	for _, field := range RequiredFields {
		msg, ok := raw[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		v, err := scalar(msg)
		if err != nil {
			return models.ScanPayload{}, apperr.MalformedPayload(
				fmt.Sprintf("Invalid QR code format: field %s must be a string or number", field), err)
		}
		values[field] = v
	}
	if len(missing) > 0 {
		return models.ScanPayload{}, apperr.IncompletePayload(missing)
	}

	return models.ScanPayload{
		ID:         values["id"],
		ItemName:   values["itemName"],
		SKU:        values["sku"],
		TotalSales: values["totalSales"],
		Quantity:   values["quantity"],
	}, nil
}

func scalar(msg json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(msg)
	if bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// LeadingInt reads the integer prefix of s the way a lenient form field
// would: surrounding space and a sign are allowed, anything after the digits
// is ignored. Text with no leading digits, or digits too large for an int,
// reads as 0.
func LeadingInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		d := int(c - '0')
		if n > (math.MaxInt-d)/10 {
			return 0
		}
		n = n*10 + d
	}
	if neg {
		return -n
	}
	return n
}
