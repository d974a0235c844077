package core

import (
	"errors"
	"testing"
)

func amount(v int64) *int64 { return &v }

func TestBillValidate(t *testing.T) {
	good := Bill{
		Email:  "a@a",
		Type:   "Transports",
		Name:   "Vol Paris Londres",
		Date:   "2022-03-01",
		Amount: amount(348),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(b *Bill)
		want error
	}{
		{"empty type", func(b *Bill) { b.Type = " " }, ErrEmptyType},
		{"empty name", func(b *Bill) { b.Name = "" }, ErrEmptyName},
		{"bad date", func(b *Bill) { b.Date = "2022-13-01" }, ErrInvalidDate},
		{"missing amount", func(b *Bill) { b.Amount = nil }, ErrInvalidAmount},
		{"bad status", func(b *Bill) { b.Status = "archived" }, ErrInvalidStatus},
	}
	for _, tc := range cases {
		b := good
		tc.mut(&b)
		if err := b.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestAmountValue(t *testing.T) {
	if got := (Bill{}).AmountValue(); got != 0 {
		t.Fatalf("expected 0 for unset amount, got %d", got)
	}
	if got := (Bill{Amount: amount(42)}).AmountValue(); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAccepted, StatusRefused} {
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if Status("").Valid() {
		t.Fatalf("empty status should not be valid")
	}
}
