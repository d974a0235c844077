package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"billed/internal/core"
	"billed/internal/store"
)

var keyPattern = regexp.MustCompile(`^[0-9a-fA-F-]{1,64}$`)

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// ReceiptDir keeps receipt images as <key>.<ext> files.
type ReceiptDir struct {
	root string
}

func NewReceiptDir(root string) (*ReceiptDir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create receipts directory: %w", err)
	}
	return &ReceiptDir{root: root}, nil
}

func (d *ReceiptDir) Save(key string, f core.ReceiptFile) error {
	if !keyPattern.MatchString(key) {
		return store.ErrNotFound
	}
	path := filepath.Join(d.root, key+"."+f.Extension())
	if err := os.WriteFile(path, f.Content, 0o644); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}

// Open returns the receipt stored for key and its content type.
func (d *ReceiptDir) Open(key string) (io.ReadCloser, string, error) {
	path, ext, err := d.find(key)
	if err != nil {
		return nil, "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read receipt: %w", err)
	}
	return io.NopCloser(bytes.NewReader(raw)), contentTypes[ext], nil
}

func (d *ReceiptDir) Remove(key string) error {
	path, _, err := d.find(key)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (d *ReceiptDir) find(key string) (string, string, error) {
	if !keyPattern.MatchString(key) {
		return "", "", store.ErrNotFound
	}
	for ext := range contentTypes {
		path := filepath.Join(d.root, key+"."+ext)
		if _, err := os.Stat(path); err == nil {
			return path, ext, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", "", fmt.Errorf("stat receipt: %w", err)
		}
	}
	return "", "", store.ErrNotFound
}
