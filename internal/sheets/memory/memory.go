// Package memory keeps exported bill rows in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"billed/internal/core"
	"billed/internal/sheets"
)

type Exporter struct {
	mu   sync.Mutex
	rows [][]string
}

var _ sheets.BillExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// AppendBill stores the row and returns a synthetic row reference.
func (e *Exporter) AppendBill(_ context.Context, b core.Bill) (string, error) {
	if b.ID == "" {
		return "", fmt.Errorf("append bill: missing id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = append(e.rows, sheets.Row(b))
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of the exported rows.
func (e *Exporter) Rows() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]string, len(e.rows))
	for i, r := range e.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
