// Package sheets stores the transaction set in a Google Sheets tab with the
// same five columns as the CSV format.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"bilancio/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var header = []string{"date", "kind", "category", "amount", "description"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

type Options struct {
	SpreadsheetID string
	SheetName     string
	// ServiceAccountJSON takes precedence over ServiceAccountFile.
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a client authenticated with service account credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(opts)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(creds),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if sheetName == "" {
		sheetName = "Transactions"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func credentials(opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.ServiceAccountJSON) != "":
		return []byte(opts.ServiceAccountJSON), nil
	case strings.TrimSpace(opts.ServiceAccountFile) != "":
		b, err := os.ReadFile(opts.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// Load reads columns A:E. The first row is the header.
func (c *Client) Load(ctx context.Context) ([]core.RawRecord, error) {
	rng := fmt.Sprintf("%s!A:E", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", rng, err)
	}
	return parseValues(resp.Values)
}

// Save writes the header and every transaction from A1, then clears the rows
// below the new content. A failed write leaves the previous rows in place.
func (c *Client) Save(ctx context.Context, txs []core.Transaction) error {
	values := toValues(txs)
	rng := fmt.Sprintf("%s!A1:E%d", c.sheetName, len(values))
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write range %s: %w", rng, err)
	}

	tail := fmt.Sprintf("%s!A%d:E", c.sheetName, len(values)+1)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tail, &gsheet.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("clear range %s: %w", tail, err)
	}
	return nil
}

func parseValues(values [][]interface{}) ([]core.RawRecord, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := make([]int, len(header))
	var missing []string
	for i, name := range header {
		cols[i] = indexOf(headers, name)
		if cols[i] == -1 && name != "description" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected sheet header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := make([]core.RawRecord, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		out = append(out, core.RawRecord{
			Line:        i + 1,
			Date:        safeGet(row, cols[0]),
			Kind:        safeGet(row, cols[1]),
			Category:    safeGet(row, cols[2]),
			Amount:      safeGet(row, cols[3]),
			Description: safeGet(row, cols[4]),
		})
	}
	return out, nil
}

func toValues(txs []core.Transaction) [][]interface{} {
	values := make([][]interface{}, 0, len(txs)+1)
	h := make([]interface{}, len(header))
	for i, name := range header {
		h[i] = name
	}
	values = append(values, h)
	for _, tx := range txs {
		r := core.ToRecord(tx)
		values = append(values, []interface{}{r.Date, r.Kind, r.Category, r.Amount, r.Description})
	}
	return values
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
