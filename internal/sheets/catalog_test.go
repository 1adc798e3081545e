package sheets

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type writeCall struct {
	Range  string
	Values [][]interface{}
}

// fakeValues is an in-memory values backend keyed by A1 range.
type fakeValues struct {
	mu       sync.Mutex
	ranges   map[string][][]string
	getErr   error
	writeErr error
	gets     []string
	writes   []writeCall
}

func (f *fakeValues) Get(_ context.Context, _ string, readRange string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, readRange)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.ranges[readRange], nil
}

func (f *fakeValues) Update(_ context.Context, _ string, writeRange string, values [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, writeCall{Range: writeRange, Values: values})
	return f.writeErr
}

type fakeSession struct {
	values ValuesClient
	err    error
}

func (s fakeSession) Ready() (ValuesClient, error) { return s.values, s.err }

func newTestCatalog() *Catalog {
	return NewCatalog("sheet-id", "Sheet1", 2, zap.NewNop())
}

func TestFetchAllMapsRowsWithOffset(t *testing.T) {
	values := &fakeValues{ranges: map[string][][]string{
		"Sheet1!A2:E": {{"1", "Widget", "SKU1", "10", "5"}},
	}}

	items, err := newTestCatalog().FetchAll(context.Background(), fakeSession{values: values})

	require.NoError(t, err)
	assert.Equal(t, []models.Item{{
		ID: "1", ItemName: "Widget", SKU: "SKU1", TotalSales: "10", Quantity: "5", RowIndex: 2,
	}}, items)
}

func TestFetchAllPreservesOrderAndFillsMissingCells(t *testing.T) {
	values := &fakeValues{ranges: map[string][][]string{
		"Sheet1!A2:E": {
			{"1", "Widget", "SKU1", "10", "5"},
			{"2", "Gadget"},
			{"3", "Gizmo", "SKU3", "", "7"},
		},
	}}

	items, err := newTestCatalog().FetchAll(context.Background(), fakeSession{values: values})

	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i+2, item.RowIndex)
	}
	assert.Equal(t, "2", items[1].ID)
	assert.Equal(t, "", items[1].SKU)
	assert.Equal(t, "0", items[1].TotalSales)
	assert.Equal(t, "0", items[1].Quantity)
	assert.Equal(t, "0", items[2].TotalSales)
}

func TestFetchAllEmptyRange(t *testing.T) {
	values := &fakeValues{ranges: map[string][][]string{}}

	items, err := newTestCatalog().FetchAll(context.Background(), fakeSession{values: values})

	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFetchAllCustomOffsetAndQuotedSheet(t *testing.T) {
	cat := NewCatalog("sheet-id", "Main Stock", 4, zap.NewNop())
	values := &fakeValues{ranges: map[string][][]string{
		"'Main Stock'!A4:E": {{"9", "Bolt", "B-9", "1", "2"}},
	}}

	items, err := cat.FetchAll(context.Background(), fakeSession{values: values})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].RowIndex)
	assert.Equal(t, "'Main Stock'!E4", cat.QuantityCell(4))
}

func TestFetchAllUnavailableSession(t *testing.T) {
	cat := newTestCatalog()

	_, err := cat.FetchAll(context.Background(), nil)
	assert.True(t, errors.Is(err, apperr.ErrRemoteUnavailable))

	_, err = cat.FetchAll(context.Background(), fakeSession{})
	assert.True(t, errors.Is(err, apperr.ErrRemoteUnavailable))

	_, err = cat.FetchAll(context.Background(), fakeSession{err: errors.New("token expired")})
	assert.True(t, errors.Is(err, apperr.ErrRemoteUnavailable))
}

func TestFetchAllWrapsClientErrors(t *testing.T) {
	values := &fakeValues{getErr: errors.New("connection reset")}

	_, err := newTestCatalog().FetchAll(context.Background(), fakeSession{values: values})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrRemoteRequest))
	assert.Equal(t, "connection reset", apperr.UserMessage(err))
}

func TestUpdateQuantityWritesResolvedRow(t *testing.T) {
	values := &fakeValues{ranges: map[string][][]string{
		"Sheet1!A2:E": {
			{"1", "Widget", "SKU1", "10", "5"},
			{"2", "Gadget", "SKU2", "3", "8"},
		},
	}}

	res, err := newTestCatalog().UpdateQuantity(context.Background(), fakeSession{values: values}, "2", 9)

	require.NoError(t, err)
	assert.Equal(t, models.UpdateResult{ItemID: "2", NewQuantity: 9, RowNumber: 3}, res)
	require.Len(t, values.writes, 1)
	assert.Equal(t, "Sheet1!E3", values.writes[0].Range)
	assert.Equal(t, [][]interface{}{{9}}, values.writes[0].Values)
	assert.Equal(t, []string{"Sheet1!A2:E"}, values.gets)
}

func TestUpdateQuantityUnknownIDWritesNothing(t *testing.T) {
	values := &fakeValues{ranges: map[string][][]string{
		"Sheet1!A2:E": {{"1", "Widget", "SKU1", "10", "5"}},
	}}

	_, err := newTestCatalog().UpdateQuantity(context.Background(), fakeSession{values: values}, "404", 1)

	assert.True(t, errors.Is(err, apperr.ErrItemNotFound))
	assert.Empty(t, values.writes)
}

func TestUpdateQuantityFirstMatchWins(t *testing.T) {
	values := &fakeValues{ranges: map[string][][]string{
		"Sheet1!A2:E": {
			{"7", "First", "A", "0", "1"},
			{"7", "Duplicate", "B", "0", "1"},
		},
	}}

	res, err := newTestCatalog().UpdateQuantity(context.Background(), fakeSession{values: values}, "7", 2)

	require.NoError(t, err)
	assert.Equal(t, 2, res.RowNumber)
}

func TestUpdateQuantityWriteFailure(t *testing.T) {
	values := &fakeValues{
		ranges: map[string][][]string{
			"Sheet1!A2:E": {{"1", "Widget", "SKU1", "10", "5"}},
		},
		writeErr: apperr.RemoteRequest(http.StatusForbidden, "The caller does not have permission", nil),
	}

	_, err := newTestCatalog().UpdateQuantity(context.Background(), fakeSession{values: values}, "1", 6)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrRemoteRequest))
	assert.Equal(t, "The caller does not have permission", apperr.UserMessage(err))
	assert.Len(t, values.writes, 1)
}

func TestGetItemByID(t *testing.T) {
	values := &fakeValues{ranges: map[string][][]string{
		"Sheet1!A2:E": {{"1", "Widget", "SKU1", "10", "5"}},
	}}
	cat := newTestCatalog()

	item, err := cat.GetItemByID(context.Background(), fakeSession{values: values}, "1")
	require.NoError(t, err)
	assert.Equal(t, "Widget", item.ItemName)

	_, err = cat.GetItemByID(context.Background(), fakeSession{values: values}, "2")
	assert.True(t, errors.Is(err, apperr.ErrItemNotFound))
}

func TestValidateStructure(t *testing.T) {
	cat := newTestCatalog()

	ok := &fakeValues{ranges: map[string][][]string{
		"Sheet1!A1:E1": {{"ID", "Item Name", "SKU", "Total Sales", "Quantity"}},
	}}
	assert.NoError(t, cat.ValidateStructure(context.Background(), fakeSession{values: ok}))

	short := &fakeValues{ranges: map[string][][]string{
		"Sheet1!A1:E1": {{"ID", "Item Name"}},
	}}
	err := cat.ValidateStructure(context.Background(), fakeSession{values: short})
	assert.True(t, errors.Is(err, apperr.ErrInvalidSheet))
	assert.Equal(t, apperr.KindInvalidSheet, apperr.KindOf(err))

	empty := &fakeValues{ranges: map[string][][]string{}}
	err = cat.ValidateStructure(context.Background(), fakeSession{values: empty})
	assert.True(t, errors.Is(err, apperr.ErrInvalidSheet))
}

func TestBoundDelegates(t *testing.T) {
	values := &fakeValues{ranges: map[string][][]string{
		"Sheet1!A2:E": {{"1", "Widget", "SKU1", "10", "5"}},
	}}
	bound := newTestCatalog().Bind(fakeSession{values: values})

	items, err := bound.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	res, err := bound.UpdateQuantity(context.Background(), "1", 6)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowNumber)
}
