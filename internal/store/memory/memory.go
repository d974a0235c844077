// Package memory is an in-process bill store for development and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"billed/internal/core"
	"billed/internal/store"
)

type receipt struct {
	contentType string
	content     []byte
}

type Store struct {
	mu       sync.Mutex
	baseURL  string
	bills    []core.Bill
	receipts map[string]receipt
}

var (
	_ store.Store         = (*Store)(nil)
	_ store.BillsResource = (*Store)(nil)
	_ store.BillGetter    = (*Store)(nil)
	_ store.ReceiptReader = (*Store)(nil)
)

// New returns an empty store. Receipt URLs are built under baseURL.
func New(baseURL string, seed ...core.Bill) *Store {
	s := &Store{
		baseURL:  strings.TrimRight(baseURL, "/"),
		receipts: make(map[string]receipt),
	}
	s.bills = append(s.bills, seed...)
	return s
}

func (s *Store) Bills() store.BillsResource { return s }

// List returns bills in insertion order.
func (s *Store) List(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Bill(nil), s.bills...), nil
}

func (s *Store) Get(_ context.Context, id string) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.bills[i], nil
	}
	return core.Bill{}, store.ErrNotFound
}

// Create stores the receipt and opens a pending bill for it.
func (s *Store) Create(_ context.Context, p store.CreatePayload) (store.UploadResult, error) {
	if err := p.File.Validate(); err != nil {
		return store.UploadResult{}, fmt.Errorf("create bill: %w", err)
	}
	key := uuid.NewString()
	url := fmt.Sprintf("%s/receipts/%s", s.baseURL, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[key] = receipt{
		contentType: p.File.ContentType,
		content:     append([]byte(nil), p.File.Content...),
	}
	s.bills = append(s.bills, core.Bill{
		ID:       key,
		Email:    p.Email,
		FileURL:  url,
		FileName: p.File.Name,
		Pct:      core.DefaultPct,
		Status:   core.StatusPending,
	})
	return store.UploadResult{FileURL: url, Key: key}, nil
}

// Update replaces the bill fields, keeping its id and, when the payload has
// none, its status.
func (s *Store) Update(_ context.Context, p store.UpdatePayload) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(p.Selector)
	if i < 0 {
		return core.Bill{}, store.ErrNotFound
	}
	b := p.Bill
	b.ID = p.Selector
	if b.Status == "" {
		b.Status = s.bills[i].Status
	}
	s.bills[i] = b
	return b, nil
}

func (s *Store) OpenReceipt(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	r, ok := s.receipts[key]
	s.mu.Unlock()
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(r.content)), r.contentType, nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.bills {
		if s.bills[i].ID == id {
			return i
		}
	}
	return -1
}
