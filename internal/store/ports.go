// Package store defines the remote bill store the controllers talk to.
package store

import (
	"context"
	"errors"
	"io"

	"billed/internal/core"
)

type (
	// Store is the entry point of a bill store client.
	Store interface {
		Bills() BillsResource
	}

	// BillsResource is the bills collection of a store.
	BillsResource interface {
		List(ctx context.Context) ([]core.Bill, error)
		Create(ctx context.Context, p CreatePayload) (UploadResult, error)
		Update(ctx context.Context, p UpdatePayload) (core.Bill, error)
	}

	// BillGetter is implemented by stores that can load a single bill.
	BillGetter interface {
		Get(ctx context.Context, id string) (core.Bill, error)
	}

	// ReceiptReader serves stored receipt images by key.
	ReceiptReader interface {
		OpenReceipt(ctx context.Context, key string) (rc io.ReadCloser, contentType string, err error)
	}

	// CreatePayload uploads a receipt for a new bill owned by Email.
	CreatePayload struct {
		File  core.ReceiptFile
		Email string
	}

	// UploadResult identifies the bill created by an upload.
	UploadResult struct {
		FileURL string `json:"fileUrl"`
		Key     string `json:"key"`
	}

	// UpdatePayload completes the bill identified by Selector.
	UpdatePayload struct {
		Selector string
		Bill     core.Bill
	}
)

var ErrNotFound = errors.New("bill not found")
