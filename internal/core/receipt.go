package core

import (
	"errors"
	"path/filepath"
	"strings"
)

// ReceiptFile is a receipt image picked in the new bill form.
type ReceiptFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

var (
	ErrNoFile              = errors.New("no receipt file")
	ErrUnsupportedFileType = errors.New("unsupported receipt file type")
)

var acceptedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

var acceptedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
}

// Extension returns the lower-cased file extension without the dot.
func (f ReceiptFile) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
}

// Validate accepts jpg, jpeg and png receipts. The extension is mandatory; the
// content type is checked only when the client sent one.
func (f ReceiptFile) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrNoFile
	}
	if _, ok := acceptedExtensions[f.Extension()]; !ok {
		return ErrUnsupportedFileType
	}
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == "application/octet-stream" {
		return nil
	}
	if _, ok := acceptedContentTypes[ct]; !ok {
		return ErrUnsupportedFileType
	}
	return nil
}
