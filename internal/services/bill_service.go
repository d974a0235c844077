// Package services coordinates the bill store with event publishing and the
// spreadsheet sync loop.
package services

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"billed/internal/core"
	"billed/internal/store"
)

// Publisher announces submitted bills.
type Publisher interface {
	PublishBillSubmitted(ctx context.Context, id, email string) error
}

// Repository is the persistent store the service wraps.
type Repository interface {
	store.BillsResource
	store.BillGetter
	store.ReceiptReader
}

// BillService saves bills locally and publishes bill.submitted after each
// successful update.
type BillService struct {
	repo      Repository
	publisher Publisher
	closers   []io.Closer
}

var (
	_ store.Store         = (*BillService)(nil)
	_ store.BillsResource = (*BillService)(nil)
	_ store.BillGetter    = (*BillService)(nil)
	_ store.ReceiptReader = (*BillService)(nil)
)

// NewBillService wraps repo. publisher may be nil; closers are closed by Close
// in order.
func NewBillService(repo Repository, publisher Publisher, closers ...io.Closer) *BillService {
	return &BillService{repo: repo, publisher: publisher, closers: closers}
}

func (s *BillService) Bills() store.BillsResource { return s }

func (s *BillService) List(ctx context.Context) ([]core.Bill, error) {
	return s.repo.List(ctx)
}

func (s *BillService) Get(ctx context.Context, id string) (core.Bill, error) {
	return s.repo.Get(ctx, id)
}

func (s *BillService) Create(ctx context.Context, p store.CreatePayload) (store.UploadResult, error) {
	return s.repo.Create(ctx, p)
}

// Update saves the bill then publishes the event. A publish failure is logged
// only: the bill is saved and the sync sweep will pick it up.
func (s *BillService) Update(ctx context.Context, p store.UpdatePayload) (core.Bill, error) {
	b, err := s.repo.Update(ctx, p)
	if err != nil {
		return core.Bill{}, err
	}
	if err := s.publish(ctx, b); err != nil {
		slog.ErrorContext(ctx, "Failed to publish bill submitted message", "id", b.ID, "error", err)
	}
	return b, nil
}

func (s *BillService) OpenReceipt(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.repo.OpenReceipt(ctx, key)
}

func (s *BillService) publish(ctx context.Context, b core.Bill) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping bill submitted message")
		return nil
	}
	return s.publisher.PublishBillSubmitted(ctx, b.ID, b.Email)
}

// Close closes the registered resources.
func (s *BillService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
