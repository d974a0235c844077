package controller

import (
	"context"
	"strconv"
	"strings"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/metrics"
	"billed/internal/routes"
	"billed/internal/store"
)

type BillsConfig struct {
	View       BillsView
	Navigate   routes.Navigator
	Store      store.Store
	ModalWidth int
	Logger     *log.Logger
}

// Bills lists the bills of the session and opens receipt previews. It keeps
// no state between calls.
type Bills struct {
	view       BillsView
	navigate   routes.Navigator
	store      store.Store
	modalWidth int
	logger     *log.Logger
}

func NewBills(cfg BillsConfig) *Bills {
	b := &Bills{
		view:       cfg.View,
		navigate:   cfg.Navigate,
		store:      cfg.Store,
		modalWidth: cfg.ModalWidth,
		logger:     cfg.Logger,
	}
	if b.modalWidth <= 0 {
		b.modalWidth = DefaultModalWidth
	}
	if b.logger == nil {
		b.logger = log.Default(log.ComponentBills)
	}
	if b.view != nil {
		b.view.OnEyeClick(func(t ReceiptTarget) { b.OpenReceiptPreview(t) })
		b.view.OnNewBill(b.HandleNewBill)
	}
	return b
}

// FetchBills returns the bills exactly as the store lists them. Store errors
// are returned as is so the page can show their message.
func (b *Bills) FetchBills(ctx context.Context) ([]core.Bill, error) {
	if b.store == nil {
		return nil, nil
	}
	bills, err := b.store.Bills().List(ctx)
	metrics.RecordBillList(err)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to list bills", log.FieldOperation, log.OpList, log.FieldError, err)
		return nil, err
	}
	return bills, nil
}

// OpenReceiptPreview shows the receipt referenced by target at half the
// modal width. A target without URL yields a placeholder preview.
func (b *Bills) OpenReceiptPreview(target ReceiptTarget) Preview {
	p := Preview{Width: b.modalWidth / 2}
	if target != nil {
		if url, ok := target.Attr(BillURLAttr); ok {
			p.URL = strings.TrimSpace(url)
		}
	}
	if p.URL == "" || p.URL == "null" {
		p.URL = ""
		p.Placeholder = true
	}
	if b.view != nil {
		b.view.ShowReceipt(p)
	}
	return p
}

// HandleNewBill opens the new bill page.
func (b *Bills) HandleNewBill() {
	if b.navigate != nil {
		b.navigate(routes.NewBill)
	}
}

// BillRow is a bill formatted for the bills table.
type BillRow struct {
	ID       string
	Type     string
	Name     string
	Date     string
	Amount   string
	Status   string
	FileURL  string
	FileName string
}

// BillRows sorts bills earliest first and formats them for display. Every
// bill is kept; a date that does not format is shown raw.
func BillRows(bills []core.Bill, logger *log.Logger) []BillRow {
	if logger == nil {
		logger = log.Default(log.ComponentBills)
	}
	sorted := core.SortByDate(bills)
	rows := make([]BillRow, 0, len(sorted))
	for _, bill := range sorted {
		date, err := core.FormatDate(bill.Date)
		if err != nil {
			logger.Warn("Corrupted bill date", log.FieldBillID, bill.ID, "date", bill.Date, log.FieldError, err)
			date = bill.Date
		}
		amount := ""
		if bill.Amount != nil {
			amount = strconv.FormatInt(*bill.Amount, 10) + " €"
		}
		rows = append(rows, BillRow{
			ID:       bill.ID,
			Type:     bill.Type,
			Name:     bill.Name,
			Date:     date,
			Amount:   amount,
			Status:   core.FormatStatus(bill.Status),
			FileURL:  bill.FileURL,
			FileName: bill.FileName,
		})
	}
	return rows
}
