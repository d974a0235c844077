package core

import (
	"errors"
	"testing"
)

func TestReceiptValidate(t *testing.T) {
	cases := []struct {
		file ReceiptFile
		want error
	}{
		{ReceiptFile{Name: "test.png", ContentType: "image/png"}, nil},
		{ReceiptFile{Name: "TEST.JPG", ContentType: "image/jpeg"}, nil},
		{ReceiptFile{Name: "scan.jpeg"}, nil},
		{ReceiptFile{Name: "scan.jpeg", ContentType: "application/octet-stream"}, nil},
		{ReceiptFile{Name: "photo.PnG", ContentType: "image/png; charset=binary"}, nil},
		{ReceiptFile{Name: "invoice.pdf", ContentType: "application/pdf"}, ErrUnsupportedFileType},
		{ReceiptFile{Name: "test.png", ContentType: "application/pdf"}, ErrUnsupportedFileType},
		{ReceiptFile{Name: "png"}, ErrUnsupportedFileType},
		{ReceiptFile{}, ErrNoFile},
	}
	for i, tc := range cases {
		if err := tc.file.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d (%s): expected %v, got %v", i, tc.file.Name, tc.want, err)
		}
	}
}
