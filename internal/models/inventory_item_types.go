package models

// Item is one inventory row of the backing sheet.
type Item struct {
	ID         string `json:"id"`
	ItemName   string `json:"itemName"`
	SKU        string `json:"sku"`
	TotalSales string `json:"totalSales"` // informational, never written
	Quantity   string `json:"quantity"`

	// RowIndex is the 1-based sheet row at the time of the read. It is not an
	// identity: any insert or delete in the sheet invalidates it.
	RowIndex int `json:"rowIndex"`
}

// Payload returns the subset of the item embedded in a QR symbol.
func (i Item) Payload() ScanPayload {
	return ScanPayload{
		ID:         i.ID,
		ItemName:   i.ItemName,
		SKU:        i.SKU,
		TotalSales: i.TotalSales,
		Quantity:   i.Quantity,
	}
}

// ScanPayload is the item snapshot serialized into a QR code at generation
// time. It is never mutated and may be stale by the time it is scanned.
type ScanPayload struct {
	ID         string `json:"id"`
	ItemName   string `json:"itemName"`
	SKU        string `json:"sku"`
	TotalSales string `json:"totalSales"`
	Quantity   string `json:"quantity"`
}

// UpdateResult reports a single quantity cell write.
type UpdateResult struct {
	ItemID      string `json:"itemId"`
	NewQuantity int    `json:"newQuantity"`
	RowNumber   int    `json:"rowNumber"`
}
