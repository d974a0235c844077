package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// DateLayout is the calendar layout bills carry on the wire and in forms.
const DateLayout = "2006-01-02"

// DefaultPct is applied when the VAT percentage is blank or unparseable.
const DefaultPct = 20

type (
	Status string

	Bill struct {
		ID         string `json:"id,omitempty"`
		Email      string `json:"email"`
		Type       string `json:"type"`
		Name       string `json:"name"`
		Date       string `json:"date"`
		Amount     *int64 `json:"amount"`
		VAT        string `json:"vat"`
		Pct        int    `json:"pct"`
		Commentary string `json:"commentary"`
		FileURL    string `json:"fileUrl"`
		FileName   string `json:"fileName"`
		Status     Status `json:"status,omitempty"`
	}
)

// ExpenseTypes lists the categories offered by the new bill form.
var ExpenseTypes = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

var (
	ErrEmptyType     = errors.New("empty expense type")
	ErrEmptyName     = errors.New("empty expense name")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidStatus = errors.New("invalid status")
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// ParsedDate returns the bill date as a time in UTC.
func (b Bill) ParsedDate() (time.Time, error) {
	return ParseDate(b.Date)
}

// AmountValue returns the amount, or zero when it was never parsed.
func (b Bill) AmountValue() int64 {
	if b.Amount == nil {
		return 0
	}
	return *b.Amount
}

// Validate reports whether the bill carries everything a submission needs.
func (b Bill) Validate() error {
	if strings.TrimSpace(b.Type) == "" {
		return ErrEmptyType
	}
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if _, err := ParseDate(b.Date); err != nil {
		return err
	}
	if b.Amount == nil {
		return ErrInvalidAmount
	}
	if b.Status != "" && !b.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
