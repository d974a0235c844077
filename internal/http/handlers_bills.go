package http

import (
	"net/http"
	"strconv"
	"strings"

	"billed/internal/controller"
	"billed/internal/log"
	"billed/internal/routes"
	"billed/internal/session"
	"billed/internal/store"
)

type billsPage struct {
	User  session.User
	Rows  []controller.BillRow
	Empty bool
}

type receiptModal struct {
	Preview controller.Preview
}

func (s *Server) billsController(v visit, view controller.BillsView, nav routes.Navigator, modalWidth int) *controller.Bills {
	return controller.NewBills(controller.BillsConfig{
		View:       view,
		Navigate:   nav,
		Store:      s.storeFor(v.user),
		ModalWidth: modalWidth,
		Logger:     s.logger.WithComponent(log.ComponentBills),
	})
}

// handleBills renders the bills table, or the error page with the store's
// message when listing fails.
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request, v visit) {
	c := s.billsController(v, &billsView{}, nil, s.modalWidth)
	bills, err := c.FetchBills(v.context(r.Context()))
	if err != nil {
		s.renderError(w, r, store.StatusOf(err), err.Error())
		return
	}
	rows := controller.BillRows(bills, log.FromContext(r.Context()).WithComponent(log.ComponentBills))
	s.render(w, r, http.StatusOK, "bills.html", billsPage{User: v.user, Rows: rows, Empty: len(rows) == 0})
}

// handleReceiptPreview answers a click on an eye icon. The icon's
// data-bill-url arrives as the url parameter and the page may report the
// modal width it measured.
func (s *Server) handleReceiptPreview(w http.ResponseWriter, r *http.Request, v visit) {
	q := r.URL.Query()
	width := s.modalWidth
	if n, err := strconv.Atoi(q.Get("width")); err == nil && n > 0 {
		width = n
	}

	view := &billsView{}
	s.billsController(v, view, nil, width)

	target := controller.Attrs{}
	if q.Has("url") {
		target[controller.BillURLAttr] = q.Get("url")
	}
	view.eyeClick(target)

	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, "receipt_modal", receiptModal{Preview: *view.preview}); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			"template", "receipt_modal", log.FieldError, err)
		StatusError(http.StatusInternalServerError).Write(w)
		return
	}
	NewHTMXResponse().TriggerModalOpen().BodyHTML(buf.String()).Write(w)
}

func (s *Server) handleNewBillButton(w http.ResponseWriter, r *http.Request, v visit) {
	view := &billsView{}
	nav := &navRecorder{}
	s.billsController(v, view, nav.Navigate, s.modalWidth)
	view.newBill()
	route, ok := nav.Take()
	if !ok {
		route = routes.Bills
	}
	redirect(w, r, route)
}
