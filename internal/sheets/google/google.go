// Package google exports bills to a Google spreadsheet, one tab per year.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"billed/internal/core"
	ports "billed/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// valuesAPI is the slice of the Sheets values API the exporter needs.
type valuesAPI interface {
	Append(ctx context.Context, spreadsheetID, rng string, vr *gsheet.ValueRange) (updatedRange string, err error)
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	// sheetBase is the tab name without year, e.g. "Bills" becomes "2004 Bills".
	sheetBase string
	now       func() time.Time
}

var _ ports.BillExporter = (*Client)(nil)

// New creates an exporter authenticated with a service account. Credentials
// come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetBase string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Bills"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		values:        serviceValues{svc: svc},
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
		now:           time.Now,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		raw, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = raw
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// AppendBill appends the bill to the tab of the year it was incurred in.
func (c *Client) AppendBill(ctx context.Context, b core.Bill) (string, error) {
	if c.values == nil {
		return "", errors.New("sheets service not initialized")
	}
	if b.ID == "" {
		return "", errors.New("append bill: missing id")
	}

	sheet := yearPrefixedName(c.sheetBase, c.billYear(b))
	rng := fmt.Sprintf("%s!A:K", sheet)

	cells := ports.Row(b)
	row := make([]any, len(cells))
	for i, v := range cells {
		row[i] = v
	}

	ref, err := c.values.Append(ctx, c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}})
	if err != nil {
		return "", fmt.Errorf("append bill %s to sheet %s: %w", b.ID, sheet, err)
	}
	slog.InfoContext(ctx, "Bill exported to Google Sheets", "id", b.ID, "range", ref)
	return ref, nil
}

func (c *Client) billYear(b core.Bill) int {
	if t, err := b.ParsedDate(); err == nil {
		return t.Year()
	}
	return c.now().Year()
}

// yearPrefixedName returns "<year> <base>". A base that already carries a %d
// verb is formatted instead.
func yearPrefixedName(base string, year int) string {
	if strings.Contains(base, "%d") {
		return fmt.Sprintf(base, year)
	}
	return fmt.Sprintf("%d %s", year, base)
}

type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Append(ctx context.Context, spreadsheetID, rng string, vr *gsheet.ValueRange) (string, error) {
	resp, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}
