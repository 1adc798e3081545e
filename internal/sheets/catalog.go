package sheets

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/metrics"
	"github.com/01moynul/qr-inventory/internal/models"
	"go.uber.org/zap"
)

// Fixed column layout of the inventory sheet.
const (
	colID = iota
	colItemName
	colSKU
	colTotalSales
	colQuantity
	columnCount
)

const (
	firstColumn    = "A"
	lastColumn     = "E"
	quantityColumn = "E"
)

// Session supplies an authorized values client. Ready fails with
// RemoteUnavailable when the user is not signed in.
type Session interface {
	Ready() (ValuesClient, error)
}

// Catalog reads item rows from the sheet and writes quantity cells.
//
// UpdateQuantity resolves the row from a fresh read and then writes the cell
// in a second, separate call. Nothing guards the gap between the two: another
// client inserting, deleting or sorting rows in that window makes the write
// land on the wrong row, and a concurrent quantity change is overwritten.
// No version check exists on the sheet to detect either case.
type Catalog struct {
	spreadsheetID string
	sheetName     string
	startRow      int
	log           *zap.Logger
}

// NewCatalog creates a catalog for one spreadsheet tab. startRow is the first
// data row; the rows above it are headers.
func NewCatalog(spreadsheetID, sheetName string, startRow int, log *zap.Logger) *Catalog {
	if startRow < 2 {
		startRow = 2
	}
	return &Catalog{
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		startRow:      startRow,
		log:           log,
	}
}

// DataRange is the A1 range holding every data row.
func (c *Catalog) DataRange() string {
	return c.a1(fmt.Sprintf("%s%d:%s", firstColumn, c.startRow, lastColumn))
}

// QuantityCell is the A1 address of the quantity cell on row.
func (c *Catalog) QuantityCell(row int) string {
	return c.a1(fmt.Sprintf("%s%d", quantityColumn, row))
}

// FetchAll returns one item per data row, in sheet order. An empty range is
// not an error.
func (c *Catalog) FetchAll(ctx context.Context, sess Session) ([]models.Item, error) {
	values, err := c.values(sess)
	if err != nil {
		return nil, err
	}

	readRange := c.DataRange()
	rows, err := values.Get(ctx, c.spreadsheetID, readRange)
	metrics.SheetRequests.WithLabelValues("get", metrics.Outcome(err)).Inc()
	if err != nil {
		err = remoteError(err)
		c.log.Error("Failed to fetch items", zap.String("range", readRange), zap.Error(err))
		return nil, err
	}

	if len(rows) == 0 {
		c.log.Warn("No data found in sheet", zap.String("range", readRange))
		return []models.Item{}, nil
	}

	items := make([]models.Item, len(rows))
	for i, row := range rows {
		items[i] = models.Item{
			ID:         cell(row, colID, ""),
			ItemName:   cell(row, colItemName, ""),
			SKU:        cell(row, colSKU, ""),
			TotalSales: cell(row, colTotalSales, "0"),
			Quantity:   cell(row, colQuantity, "0"),
			RowIndex:   i + c.startRow,
		}
	}

	c.log.Debug("Fetched items", zap.String("range", readRange), zap.Int("rows", len(items)))
	return items, nil
}

// GetItemByID returns the first item whose id matches, compared as strings.
func (c *Catalog) GetItemByID(ctx context.Context, sess Session, id string) (models.Item, error) {
	items, err := c.FetchAll(ctx, sess)
	if err != nil {
		return models.Item{}, err
	}
	item, ok := findItem(items, id)
	if !ok {
		return models.Item{}, apperr.ItemNotFound(id)
	}
	return item, nil
}

// UpdateQuantity writes newQuantity into the quantity cell of the row that
// currently holds id. It issues exactly one write, or none when the id is
// absent. No retry is attempted.
func (c *Catalog) UpdateQuantity(ctx context.Context, sess Session, id string, newQuantity int) (models.UpdateResult, error) {
	result, err := c.updateQuantity(ctx, sess, id, newQuantity)
	metrics.QuantityWrites.WithLabelValues(metrics.Outcome(err)).Inc()
	return result, err
}

func (c *Catalog) updateQuantity(ctx context.Context, sess Session, id string, newQuantity int) (models.UpdateResult, error) {
	items, err := c.FetchAll(ctx, sess)
	if err != nil {
		return models.UpdateResult{}, err
	}

	item, ok := findItem(items, id)
	if !ok {
		c.log.Warn("Item not found for quantity update", zap.String("itemId", id))
		return models.UpdateResult{}, apperr.ItemNotFound(id)
	}

	values, err := c.values(sess)
	if err != nil {
		return models.UpdateResult{}, err
	}

	// Row resolved above may already be stale here.
	writeRange := c.QuantityCell(item.RowIndex)
	err = values.Update(ctx, c.spreadsheetID, writeRange, [][]interface{}{{newQuantity}})
	metrics.SheetRequests.WithLabelValues("update", metrics.Outcome(err)).Inc()
	if err != nil {
		err = remoteError(err)
		c.log.Error("Failed to update quantity",
			zap.String("itemId", id),
			zap.String("range", writeRange),
			zap.Error(err),
		)
		return models.UpdateResult{}, err
	}

	c.log.Info("Updated item quantity",
		zap.String("itemId", id),
		zap.Int("quantity", newQuantity),
		zap.Int("row", item.RowIndex),
	)

	return models.UpdateResult{
		ItemID:      id,
		NewQuantity: newQuantity,
		RowNumber:   item.RowIndex,
	}, nil
}

// ValidateStructure checks that the header row has the five expected columns.
// A short header yields InvalidSheet.
func (c *Catalog) ValidateStructure(ctx context.Context, sess Session) error {
	values, err := c.values(sess)
	if err != nil {
		return err
	}

	headerRange := c.a1(fmt.Sprintf("%s1:%s1", firstColumn, lastColumn))
	rows, err := values.Get(ctx, c.spreadsheetID, headerRange)
	metrics.SheetRequests.WithLabelValues("get", metrics.Outcome(err)).Inc()
	if err != nil {
		return remoteError(err)
	}

	if len(rows) == 0 || len(rows[0]) < columnCount {
		return apperr.InvalidSheet("Sheet does not have required columns. Expected: ID, Item Name, SKU, Total Sales, Quantity")
	}
	return nil
}

// Bind fixes the session so the result can be handed to code that only
// knows about items, such as the scan reconciler.
func (c *Catalog) Bind(sess Session) *Bound {
	return &Bound{catalog: c, sess: sess}
}

// Bound is a Catalog tied to one session.
type Bound struct {
	catalog *Catalog
	sess    Session
}

// FetchAll reads every item with the bound session.
func (b *Bound) FetchAll(ctx context.Context) ([]models.Item, error) {
	return b.catalog.FetchAll(ctx, b.sess)
}

// UpdateQuantity writes newQuantity for id with the bound session. It
// satisfies scanner.QuantityWriter.
func (b *Bound) UpdateQuantity(ctx context.Context, id string, newQuantity int) (models.UpdateResult, error) {
	return b.catalog.UpdateQuantity(ctx, b.sess, id, newQuantity)
}

func (c *Catalog) values(sess Session) (ValuesClient, error) {
	if sess == nil {
		return nil, apperr.RemoteUnavailable("Google API client not initialized. Please sign in again.")
	}
	values, err := sess.Ready()
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnknown {
			return nil, &apperr.Error{Kind: apperr.KindRemoteUnavailable, Message: "Please sign in again.", Err: err}
		}
		return nil, err
	}
	if values == nil {
		return nil, apperr.RemoteUnavailable("Google API client not initialized. Please sign in again.")
	}
	return values, nil
}

func (c *Catalog) a1(cells string) string {
	return quoteSheetName(c.sheetName) + "!" + cells
}

// quoteSheetName wraps names that are not plain identifiers in single quotes,
// doubling any embedded quote.
func quoteSheetName(name string) string {
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}

func findItem(items []models.Item, id string) (models.Item, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return models.Item{}, false
}

func cell(row []string, col int, fallback string) string {
	if col < len(row) && row[col] != "" {
		return row[col]
	}
	return fallback
}

// remoteError makes sure a client failure leaves this package as an apperr.
func remoteError(err error) error {
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	return apperr.RemoteRequest(0, err.Error(), err)
}
