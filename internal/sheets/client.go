// Package sheets mirrors saved workbook rows into a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// rawInput stores values as sent, so dates and fixed-decimal text are not reinterpreted.
const rawInput = "RAW"

// ValueStore reads and writes cell values of a spreadsheet. Ranges use A1 notation
// including the sheet name, for example "Screener!A:B".
type ValueStore interface {
	ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error)
	AppendRows(ctx context.Context, spreadsheetID, range_ string, rows [][]interface{}) error
	UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error
}

// Client is the ValueStore backed by the Sheets v4 API.
type Client struct {
	values *sheets.SpreadsheetsValuesService
}

// NewClient creates a Sheets client authenticated with a service account credentials file.
// Extra options are passed to the service, an empty credentialsFile leaves authentication to them.
func NewClient(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*Client, error) {
	if credentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{values: service.Spreadsheets.Values}, nil
}

// ReadSheet returns the values in range_. Trailing empty rows and cells are omitted by the API.
func (c *Client) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	resp, err := c.values.Get(spreadsheetID, range_).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", range_, err)
	}
	return resp.Values, nil
}

// AppendRows inserts rows below the table found at range_.
func (c *Client) AppendRows(ctx context.Context, spreadsheetID, range_ string, rows [][]interface{}) error {
	_, err := c.values.Append(spreadsheetID, range_, &sheets.ValueRange{Values: rows}).
		ValueInputOption(rawInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append %d rows: %w", len(rows), err)
	}
	return nil
}

// UpdateRange overwrites the cells of range_ with values.
func (c *Client) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error {
	_, err := c.values.Update(spreadsheetID, range_, &sheets.ValueRange{Values: values}).
		ValueInputOption(rawInput).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update range %s: %w", range_, err)
	}
	return nil
}
