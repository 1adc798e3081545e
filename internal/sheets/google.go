package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Scopes requested from the user at consent time.
var Scopes = []string{
	sheetsapi.SpreadsheetsScope,
	"https://www.googleapis.com/auth/drive.file",
}

// ValuesClient is the subset of the Sheets values API the catalog needs.
type ValuesClient interface {
	Get(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)
	Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error
}

// ClientFactory builds a ValuesClient authorized with a user's access token.
type ClientFactory func(ctx context.Context, accessToken string) (ValuesClient, error)

// GoogleValues talks to the real Sheets v4 API.
type GoogleValues struct {
	svc *sheetsapi.Service
}

// NewGoogleValues creates the Sheets service. Errors from the returned client
// are always *apperr.Error.
func NewGoogleValues(ctx context.Context, opts ...option.ClientOption) (*GoogleValues, error) {
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets client: %w", err)
	}
	return &GoogleValues{svc: svc}, nil
}

// GoogleClientFactory returns a ClientFactory for the real API. A non-empty
// endpoint overrides Google's default base URL.
func GoogleClientFactory(endpoint string) ClientFactory {
	return func(ctx context.Context, accessToken string) (ValuesClient, error) {
		if accessToken == "" {
			return nil, apperr.RemoteUnavailable("No access token. Please sign in again.")
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
		opts := []option.ClientOption{option.WithTokenSource(ts)}
		if endpoint != "" {
			opts = append(opts, option.WithEndpoint(endpoint))
		}
		values, err := NewGoogleValues(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return values, nil
	}
}

func (g *GoogleValues) Get(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, convertError(err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		rows[i] = cells
	}
	return rows, nil
}

func (g *GoogleValues) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error {
	_, err := g.svc.Spreadsheets.Values.
		Update(spreadsheetID, writeRange, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return convertError(err)
	}
	return nil
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// convertError turns a Google client failure into a RemoteRequest error that
// carries the upstream status and message.
func convertError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", gerr.Code, http.StatusText(gerr.Code))
		}
		return apperr.RemoteRequest(gerr.Code, msg, err)
	}
	return apperr.RemoteRequest(0, err.Error(), err)
}
