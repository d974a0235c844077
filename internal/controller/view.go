// Package controller holds the page controllers of the bill screens. They
// are driven through View interfaces so the same state machines serve the
// HTML pages and the tests.
package controller

import (
	"context"

	"billed/internal/core"
)

// BillURLAttr is the attribute of an eye icon that carries the receipt URL.
const BillURLAttr = "data-bill-url"

// DefaultModalWidth is used when the page did not report a modal width.
const DefaultModalWidth = 800

// ReceiptTarget is the element a preview was requested from.
type ReceiptTarget interface {
	Attr(name string) (string, bool)
}

// Attrs is a ReceiptTarget backed by a map.
type Attrs map[string]string

func (a Attrs) Attr(name string) (string, bool) {
	v, ok := a[name]
	return v, ok
}

// Preview is the content of the receipt modal. Placeholder is set when the
// target carried no URL.
type Preview struct {
	URL         string
	Width       int
	Placeholder bool
}

// BillsView is the bills page as seen by the Bills controller.
type BillsView interface {
	OnEyeClick(func(ReceiptTarget))
	OnNewBill(func())
	ShowReceipt(Preview)
}

// BillForm holds the raw values of the new bill form.
type BillForm struct {
	Type       string
	Name       string
	Date       string
	Amount     string
	VAT        string
	Pct        string
	Commentary string
}

// NewBillView is the new bill page as seen by the NewBill controller.
type NewBillView interface {
	OnFileSelected(func(context.Context, core.ReceiptFile) error)
	OnSubmit(func(context.Context, BillForm) error)
	ClearFileInput()
	ShowFileError(show bool)
	SetSubmitEnabled(enabled bool)
}
