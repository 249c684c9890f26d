package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"moneycontrol/internal/core"
	"moneycontrol/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// USER_ENTERED keeps dates and amounts typed; text cells are escaped by toCells.
const valueInputOption = "USER_ENTERED"

// Config selects the target sheet and the service account used to write it.
// One of ServiceAccountJSON or ServiceAccountFile is required.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Client rewrites one sheet with the exported transactions.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ sheets.Exporter = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Movimientos"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Export clears the sheet and writes the header followed by one row per
// transaction. The returned reference is the written A1 range.
func (c *Client) Export(ctx context.Context, txs []core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:F", c.sheetName)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := toValues(txs)
	ref := fmt.Sprintf("%s!A1:F%d", c.sheetName, len(values))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, &gsheet.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", ref, err)
	}

	slog.InfoContext(ctx, "Ledger exported to Google Sheets", "ref", ref, "rows", len(txs))
	return ref, nil
}

func toValues(txs []core.Transaction) [][]any {
	values := make([][]any, 0, len(txs)+1)
	values = append(values, toCells(sheets.Header))
	for _, t := range txs {
		values = append(values, toCells(sheets.Row(t)))
	}
	return values
}

// toCells quotes values Sheets would otherwise evaluate as formulas.
func toCells(row []string) []any {
	cells := make([]any, len(row))
	for i, v := range row {
		if v != "" && strings.ContainsRune("=+-@", rune(v[0])) {
			v = "'" + v
		}
		cells[i] = v
	}
	return cells
}
