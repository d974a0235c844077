// This file implements request parsing shared by the page handlers and the
// JSON API: form and JSON bodies, the new bill form and receipt uploads.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"billed/internal/controller"
	"billed/internal/core"
)

// DefaultUploadMaxBytes bounds a receipt upload when no limit is configured.
const DefaultUploadMaxBytes = 10 << 20

// ErrUploadTooLarge is returned when the multipart body exceeds the limit.
var ErrUploadTooLarge = errors.New("receipt upload too large")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and keeps it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseBillForm reads the new bill form fields. Values are kept as typed;
// the controller does the numeric parsing.
func ParseBillForm(form url.Values) controller.BillForm {
	return controller.BillForm{
		Type:       sanitizeInput(form.Get("expense-type")),
		Name:       sanitizeInput(form.Get("expense-name")),
		Date:       sanitizeInput(form.Get("datepicker")),
		Amount:     sanitizeInput(form.Get("amount")),
		VAT:        sanitizeInput(form.Get("vat")),
		Pct:        sanitizeInput(form.Get("pct")),
		Commentary: sanitizeInput(form.Get("commentary")),
	}
}

// ReadReceiptFile reads the multipart file field. A request without a file
// yields a zero ReceiptFile so validation reports it like any bad pick.
func ReadReceiptFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (core.ReceiptFile, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultUploadMaxBytes
	}
	// room for the other multipart fields
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.ReceiptFile{}, ErrUploadTooLarge
		}
		return core.ReceiptFile{}, fmt.Errorf("parse multipart form: %w", err)
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return core.ReceiptFile{}, nil
	}
	if err != nil {
		return core.ReceiptFile{}, fmt.Errorf("read %s field: %w", field, err)
	}
	defer file.Close()

	if header.Size > maxBytes {
		return core.ReceiptFile{}, ErrUploadTooLarge
	}
	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return core.ReceiptFile{}, fmt.Errorf("read %s field: %w", field, err)
	}
	if int64(len(content)) > maxBytes {
		return core.ReceiptFile{}, ErrUploadTooLarge
	}

	return core.ReceiptFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(content)),
		Content:     content,
	}, nil
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Format de requête invalide")
	}
	return nil
}
