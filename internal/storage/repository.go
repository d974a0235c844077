// Package storage is the SQLite-backed bill store. Bill rows live in SQLite,
// receipt images in a directory on disk.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"billed/internal/core"
	"billed/internal/store"

	_ "modernc.org/sqlite"
)

// Sync states of a bill row towards the spreadsheet export.
const (
	SyncNone    = "none"
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db       *sql.DB
	receipts *ReceiptDir
	baseURL  string
}

var (
	_ store.Store         = (*SQLiteRepository)(nil)
	_ store.BillsResource = (*SQLiteRepository)(nil)
	_ store.BillGetter    = (*SQLiteRepository)(nil)
	_ store.ReceiptReader = (*SQLiteRepository)(nil)
)

// NewSQLiteRepository opens dbPath, migrates it and stores receipts under
// receiptsDir. Receipt URLs are built under baseURL.
func NewSQLiteRepository(dbPath, receiptsDir, baseURL string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	receipts, err := NewReceiptDir(receiptsDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db:       db,
		receipts: receipts,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Bills() store.BillsResource { return r }

const billColumns = `id, email, type, name, date, amount, vat, pct, commentary, file_url, file_name, status`

// List returns every bill in creation order.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+billColumns+` FROM bills ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, store.ErrNotFound
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, err)
	}
	return b, nil
}

// Create writes the receipt to disk and inserts a pending bill for it.
func (r *SQLiteRepository) Create(ctx context.Context, p store.CreatePayload) (store.UploadResult, error) {
	if err := p.File.Validate(); err != nil {
		return store.UploadResult{}, fmt.Errorf("create bill: %w", err)
	}
	key := uuid.NewString()
	if err := r.receipts.Save(key, p.File); err != nil {
		return store.UploadResult{}, err
	}
	fileURL := fmt.Sprintf("%s/receipts/%s", r.baseURL, key)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (id, email, pct, file_url, file_name, status) VALUES (?, ?, ?, ?, ?, ?)`,
		key, p.Email, core.DefaultPct, fileURL, p.File.Name, string(core.StatusPending))
	if err != nil {
		_ = r.receipts.Remove(key)
		return store.UploadResult{}, fmt.Errorf("insert bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill created", "id", key, "file_name", p.File.Name)
	return store.UploadResult{FileURL: fileURL, Key: key}, nil
}

// Update overwrites the bill fields and queues the bill for export. An empty
// status in the payload keeps the stored one.
func (r *SQLiteRepository) Update(ctx context.Context, p store.UpdatePayload) (core.Bill, error) {
	b := p.Bill
	var amount sql.NullInt64
	if b.Amount != nil {
		amount = sql.NullInt64{Int64: *b.Amount, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE bills SET
    email = ?, type = ?, name = ?, date = ?, amount = ?, vat = ?, pct = ?,
    commentary = ?, file_url = ?, file_name = ?,
    status = COALESCE(NULLIF(?, ''), status),
    sync_status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`,
		b.Email, b.Type, b.Name, b.Date, amount, b.VAT, b.Pct,
		b.Commentary, b.FileURL, b.FileName,
		string(b.Status),
		SyncPending, p.Selector)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill %s: %w", p.Selector, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Bill{}, store.ErrNotFound
	}

	slog.InfoContext(ctx, "Bill updated", "id", p.Selector, "type", b.Type)
	return r.Get(ctx, p.Selector)
}

func (r *SQLiteRepository) OpenReceipt(_ context.Context, key string) (io.ReadCloser, string, error) {
	return r.receipts.Open(key)
}

// PendingSync returns up to limit bills waiting for export, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE sync_status = ? ORDER BY updated_at, rowid LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// MarkSynced records a successful export.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bills SET sync_status = ?, synced_at = CURRENT_TIMESTAMP WHERE id = ?`, SyncSynced, id)
	if err != nil {
		return fmt.Errorf("mark bill synced: %w", err)
	}
	slog.InfoContext(ctx, "Bill marked as synced", "id", id)
	return nil
}

// MarkSyncError records a failed export.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bills SET sync_status = ? WHERE id = ?`, SyncError, id)
	if err != nil {
		return fmt.Errorf("mark bill sync error: %w", err)
	}
	return nil
}

// SyncStatus returns the export state of a bill.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, id string) (string, error) {
	var s string
	err := r.db.QueryRowContext(ctx, `SELECT sync_status FROM bills WHERE id = ?`, id).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get sync status: %w", err)
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(s scanner) (core.Bill, error) {
	var (
		b      core.Bill
		amount sql.NullInt64
		status string
	)
	err := s.Scan(&b.ID, &b.Email, &b.Type, &b.Name, &b.Date, &amount, &b.VAT, &b.Pct,
		&b.Commentary, &b.FileURL, &b.FileName, &status)
	if err != nil {
		return core.Bill{}, err
	}
	if amount.Valid {
		v := amount.Int64
		b.Amount = &v
	}
	b.Status = core.Status(status)
	return b, nil
}
