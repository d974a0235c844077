package http

import (
	"errors"
	"net/http"
	"strings"

	"billed/internal/controller"
	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/routes"
	"billed/internal/session"
)

type newBillForm struct {
	User         session.User
	ExpenseTypes []string
	DefaultPct   int
	File         fileFieldData
}

// handleNewBillPage opens a fresh form; a receipt uploaded on an earlier visit
// is forgotten.
func (s *Server) handleNewBillPage(w http.ResponseWriter, r *http.Request, v visit) {
	p := s.openNewBillPage(v)
	s.render(w, r, http.StatusOK, "newbill.html", newBillForm{
		User:         v.user,
		ExpenseTypes: core.ExpenseTypes,
		DefaultPct:   core.DefaultPct,
		File:         p.view.snapshot(),
	})
}

// handleFileChange is the change event of the file input: the receipt is
// validated and uploaded before the file field is sent back.
func (s *Server) handleFileChange(w http.ResponseWriter, r *http.Request, v visit) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentNewBill)

	f, err := ReadReceiptFile(w, r, "file", s.uploadMaxBytes)
	if errors.Is(err, ErrUploadTooLarge) {
		logger.WarnContext(r.Context(), "Receipt too large", log.FieldError, err)
		// an empty pick is rejected by the controller like a bad extension
		f = core.ReceiptFile{}
	} else if err != nil {
		logger.WarnContext(r.Context(), "Unreadable receipt upload", log.FieldError, err)
		BadRequestError("Format de requête invalide").Write(w)
		return
	}

	p := s.newBillPageFor(v)
	uploadErr := p.view.pick(v.context(r.Context()), f)

	data := p.view.snapshot()
	resp := NewHTMXResponse()
	switch {
	case uploadErr != nil:
		data.UploadError = uploadMessage(uploadErr)
		resp.TriggerErrorNotification(data.UploadError)
	case data.FileError:
		resp.TriggerReceiptRejected()
	default:
		if rec, ok := p.controller.Receipt(); ok {
			resp.TriggerReceiptUploaded(rec.Key, rec.FileURL)
		}
	}
	s.writeFileField(w, r, resp, data)
}

// uploadMessage is the text shown under the file input after a failed upload.
func uploadMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if strings.HasPrefix(msg, "Erreur ") {
		return msg
	}
	return "Erreur lors de l'envoi du justificatif"
}

func (s *Server) writeFileField(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder, data fileFieldData) {
	var buf strings.Builder
	err := s.templates.ExecuteTemplate(&buf, "file_field", data)
	if err == nil {
		oob := data
		oob.OOB = true
		err = s.templates.ExecuteTemplate(&buf, "submit_button", oob)
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			"template", "file_field", log.FieldError, err)
		StatusError(http.StatusInternalServerError).Write(w)
		return
	}
	resp.BodyHTML(buf.String()).Write(w)
}

// handleSubmit hands the form to the controller, which answers with a
// navigation to the bills page before the bill is saved.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, v visit) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	form := ParseBillForm(r.PostForm)

	p := s.newBillPageFor(v)
	p.submitMu.Lock()
	err := p.view.send(v.context(r.Context()), form)
	route, navigated := p.nav.Take()
	p.submitMu.Unlock()

	if errors.Is(err, controller.ErrReceiptNotReady) {
		UnprocessableEntityError("Veuillez joindre un justificatif au format jpg, jpeg ou png").Write(w)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Submit failed", log.FieldError, err)
		StatusError(http.StatusInternalServerError).Write(w)
		return
	}

	s.trackSubmission(p)
	s.pages.Delete(v.id)
	if !navigated {
		route = routes.Bills
	}
	redirect(w, r, route)
}
