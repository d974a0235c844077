// Package worker exports submitted bills to the spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"billed/internal/amqp"
	"billed/internal/core"
	"billed/internal/sheets"
)

// SyncSource is the bill store side of the export.
type SyncSource interface {
	Get(ctx context.Context, id string) (core.Bill, error)
	PendingSync(ctx context.Context, limit int) ([]core.Bill, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker handles bill.submitted messages and sweeps bills whose message
// was lost.
type SyncWorker struct {
	source    SyncSource
	exporter  sheets.BillExporter
	batchSize int
}

func NewSyncWorker(source SyncSource, exporter sheets.BillExporter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{source: source, exporter: exporter, batchSize: batchSize}
}

// HandleBillSubmitted exports the bill named by msg. An error requeues the
// message.
func (w *SyncWorker) HandleBillSubmitted(ctx context.Context, msg *amqp.BillSubmittedMessage) error {
	slog.InfoContext(ctx, "Processing bill submitted message", "id", msg.ID)

	b, err := w.source.Get(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get bill from storage: %w", err)
	}
	return w.export(ctx, b)
}

// ProcessPending exports up to one batch of bills still waiting for export.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.source.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending bills: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending bills", "count", len(pending))
	for _, b := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.export(ctx, b); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending bill", "id", b.ID, "error", err)
			if err := w.source.MarkSyncError(ctx, b.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", b.ID, "error", err)
			}
		}
	}
	return nil
}

func (w *SyncWorker) export(ctx context.Context, b core.Bill) error {
	ref, err := w.exporter.AppendBill(ctx, b)
	if err != nil {
		return fmt.Errorf("export bill %s: %w", b.ID, err)
	}
	if err := w.source.MarkSynced(ctx, b.ID); err != nil {
		// the row exists, a retry would duplicate it
		slog.WarnContext(ctx, "Failed to mark bill as synced", "id", b.ID, "error", err)
	}
	slog.InfoContext(ctx, "Exported bill", "id", b.ID, "row_ref", ref)
	return nil
}
