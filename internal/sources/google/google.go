// Package google reads suppliers and invoices from a Google Sheets
// spreadsheet and appends completed exports to an audit sheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"painel/internal/core"
	"painel/internal/sources"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config names the spreadsheet, its sheets and the credentials: a service
// account, or an OAuth client plus a user token from painel-oauth-init.
type Config struct {
	SpreadsheetID      string
	SuppliersSheet     string
	InvoicesSheet      string
	ExportLogSheet     string
	ServiceAccountJSON string
	ServiceAccountFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	suppliersSheet string
	invoicesSheet  string
	exportLogSheet string
}

var (
	_ sources.SupplierReader = (*Client)(nil)
	_ sources.ExportLog      = (*Client)(nil)
)

// New creates an authenticated Sheets client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service, filling default sheet names.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	return &Client{
		svc:            svc,
		spreadsheetID:  strings.TrimSpace(cfg.SpreadsheetID),
		suppliersSheet: orDefault(cfg.SuppliersSheet, "Fornecedores"),
		invoicesSheet:  orDefault(cfg.InvoicesSheet, "Faturas"),
		exportLogSheet: orDefault(cfg.ExportLogSheet, "Exportações"),
	}
}

// newSheetsService uses inline JSON, a credentials file,
// GOOGLE_APPLICATION_CREDENTIALS or a saved OAuth token, in that order.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	credsFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var auth goption.ClientOption
	switch {
	case credsJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		auth = goption.WithCredentialsJSON([]byte(credsJSON))
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", credsFile, "size", len(b))
		auth = goption.WithCredentialsJSON(b)
	case strings.TrimSpace(cfg.OAuthTokenFile) != "":
		ts, err := oauthTokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using saved OAuth user token", "path", cfg.OAuthTokenFile)
		auth = goption.WithTokenSource(ts)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	svc, err := gsheet.NewService(ctx, auth, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// ListSuppliers implements sources.SupplierReader. Supplier order follows
// the sheet rows; invoices are attached newest first.
func (c *Client) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	supRange := fmt.Sprintf("%s!A1:D", c.suppliersSheet)
	supResp, err := c.readRange(ctx, supRange)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", supRange, err)
	}
	suppliers, err := parseSuppliers(supResp.Values)
	if err != nil {
		return nil, err
	}

	invRange := fmt.Sprintf("%s!A1:C", c.invoicesSheet)
	invResp, err := c.readRange(ctx, invRange)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", invRange, err)
	}
	invoices, err := parseInvoices(invResp.Values)
	if err != nil {
		return nil, err
	}

	for i := range suppliers {
		list := invoices[suppliers[i].ID]
		sort.SliceStable(list, func(a, b int) bool { return list[a].Date.After(list[b].Date.Time) })
		suppliers[i].Invoices = list
	}
	slog.DebugContext(ctx, "Suppliers read from Google Sheets", "count", len(suppliers))
	return suppliers, nil
}

// readRange returns raw numbers and formatted dates so amounts never depend
// on the spreadsheet locale.
func (c *Client) readRange(ctx context.Context, rng string) (*gsheet.ValueRange, error) {
	return c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
}

// RecordExport implements sources.ExportLog by appending one row.
func (c *Client) RecordExport(ctx context.Context, r core.ExportRecord) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:G", c.exportLogSheet)
	vr := &gsheet.ValueRange{Values: [][]any{{
		r.ID,
		r.CreatedAt.Format("02/01/2006 15:04:05"),
		r.Filename,
		r.Rows,
		int(r.Window),
		string(r.Category),
		r.Search,
	}}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append export to %s: %w", c.exportLogSheet, err)
	}
	return nil
}

// Ping fetches only the spreadsheet id, for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return err
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
