package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a store failure carrying the HTTP status it maps to.
type Error struct {
	Status  int
	Message string
}

// NewError builds the user-facing error for an HTTP status, e.g. "Erreur 500".
func NewError(status int) *Error {
	return &Error{Status: status, Message: fmt.Sprintf("Erreur %d", status)}
}

func (e *Error) Error() string {
	return e.Message
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var se *Error
	if errors.As(err, &se) && se.Status > 0 {
		return se.Status
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
