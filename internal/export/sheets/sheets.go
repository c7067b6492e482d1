// Package sheets pushes export tables into a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"wealthtrack/internal/config"
	"wealthtrack/internal/core"
	"wealthtrack/internal/export"
)

// Client writes tables into one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromConfig authenticates with the configured service account.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.SheetsEnabled() {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.GoogleServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.GoogleServiceAccountJSON)
	case cfg.GoogleServiceAccountFile != "":
		b, err := os.ReadFile(cfg.GoogleServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	return New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// New creates a client with explicit API options.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	if sheetName == "" {
		sheetName = "Report"
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets export ready", "spreadsheet_id", spreadsheetID, "sheet", sheetName)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// WriteTable replaces the sheet content with t, header first. It returns the
// number of data rows written.
func (c *Client) WriteTable(ctx context.Context, t export.Table) (int, error) {
	values := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	values = append(values, header)
	for _, row := range t.Rows {
		values = append(values, cells(row))
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.sheetName, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("clear sheet %s: %w", c.sheetName, err)
	}

	rng := fmt.Sprintf("%s!A1", c.sheetName)
	start := time.Now()
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("update sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Exported table to Google Sheets",
		"sheet", c.sheetName,
		"rows", len(t.Rows),
		"duration_ms", time.Since(start).Milliseconds())
	return len(t.Rows), nil
}

// cells keeps numbers numeric so the sheet can compute with them; everything
// else goes through export.Cell.
func cells(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case float64, int, int64, bool:
			out[i] = x
		case *float64:
			if x != nil {
				out[i] = *x
			} else {
				out[i] = ""
			}
		case core.Date:
			out[i] = x.String()
		default:
			s, err := export.Cell(v)
			if err != nil {
				s = ""
			}
			out[i] = s
		}
	}
	return out
}
