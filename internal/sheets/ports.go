// Package sheets exports submitted bills to a spreadsheet.
package sheets

import (
	"context"

	"billed/internal/core"
)

// BillExporter appends one bill as a spreadsheet row.
type BillExporter interface {
	AppendBill(ctx context.Context, b core.Bill) (rowRef string, err error)
}

// Header is the column layout of exported rows.
var Header = []string{"ID", "Email", "Type", "Name", "Date", "Amount", "VAT", "Pct", "Commentary", "Receipt", "Status"}

// Row renders a bill in Header order. A missing amount is left blank.
func Row(b core.Bill) []string {
	amount := ""
	if b.Amount != nil {
		amount = formatInt(*b.Amount)
	}
	return []string{
		b.ID,
		b.Email,
		b.Type,
		b.Name,
		b.Date,
		amount,
		b.VAT,
		formatInt(int64(b.Pct)),
		b.Commentary,
		b.FileURL,
		string(b.Status),
	}
}
