package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"billed/internal/auth"
	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/session"
	"billed/internal/store"
)

// apiResource is the part of the store the token holder may use.
func (s *Server) apiResource(r *http.Request) store.BillsResource {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if ok && claims.Type == session.TypeAdmin {
		return s.store.Bills()
	}
	email := ""
	if ok {
		email = claims.Email
	}
	return store.OwnedBy(s.store.Bills(), email)
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := store.StatusOf(err)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentStore)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Store API call failed", log.FieldOperation, op, log.FieldError, err)
	} else {
		logger.WarnContext(r.Context(), "Store API call refused", log.FieldOperation, op, log.FieldError, err)
	}
	writeJSONError(w, status, store.NewError(status).Message)
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	bills, err := s.apiResource(r).List(r.Context())
	if err != nil {
		s.apiError(w, r, log.OpList, err)
		return
	}
	if bills == nil {
		bills = []core.Bill{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	f, err := ReadReceiptFile(w, r, "file", s.uploadMaxBytes)
	if errors.Is(err, ErrUploadTooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "Erreur 413")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Erreur 400")
		return
	}
	if err := f.Validate(); err != nil {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Erreur 415")
		return
	}

	res, err := s.apiResource(r).Create(r.Context(), store.CreatePayload{
		File:  f,
		Email: sanitizeInput(r.FormValue("email")),
	})
	if err != nil {
		s.apiError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	var bill core.Bill
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&bill); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Erreur 400")
		return
	}
	if bill.Status != "" && !bill.Status.Valid() {
		writeJSONError(w, http.StatusBadRequest, "Erreur 400")
		return
	}

	updated, err := s.apiResource(r).Update(r.Context(), store.UpdatePayload{
		Selector: r.PathValue("id"),
		Bill:     bill,
	})
	if err != nil {
		s.apiError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleReceipt serves a stored receipt. Keys are random, so receipts are
// readable without a token the way the image tags need them.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := s.receipts.OpenReceipt(r.Context(), r.PathValue("key"))
	if err != nil {
		status := store.StatusOf(err)
		http.Error(w, store.NewError(status).Message, status)
		return
	}
	defer rc.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = io.Copy(w, rc)
}
