package http

import (
	"context"
	"net/http"
	"sync"

	"billed/internal/auth"
	"billed/internal/controller"
	"billed/internal/log"
	"billed/internal/metrics"
	"billed/internal/routes"
	"billed/internal/session"
	"billed/internal/store"
)

// SessionCookie carries the session id.
const SessionCookie = "billed_session"

// visit is the session a request belongs to.
type visit struct {
	id      string
	storage *session.MemoryStorage
	user    session.User
}

// context returns ctx carrying the session token for remote stores.
func (v visit) context(ctx context.Context) context.Context {
	return auth.WithToken(ctx, session.Token(v.storage))
}

func (s *Server) lookupSession(r *http.Request) (string, *session.MemoryStorage, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", nil, false
	}
	st, ok := s.sessions.Get(c.Value)
	if !ok {
		return "", nil, false
	}
	return c.Value, st, true
}

// ensureSession returns the request's session, starting one when needed.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (string, *session.MemoryStorage) {
	if id, st, ok := s.lookupSession(r); ok {
		return id, st
	}
	id, st := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	s.refreshSessionGauge()
	return id, st
}

// requireUser serves next only for signed-in sessions; others go to login.
func (s *Server) requireUser(next func(http.ResponseWriter, *http.Request, visit)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, st, ok := s.lookupSession(r)
		if !ok {
			redirect(w, r, routes.Login)
			return
		}
		user, err := session.CurrentUser(st)
		if err != nil {
			redirect(w, r, routes.Login)
			return
		}
		next(w, r, visit{id: id, storage: st, user: user})
	}
}

// storeFor scopes the store to what user may see. Admins see every bill.
func (s *Server) storeFor(user session.User) store.Store {
	if s.store == nil {
		return nil
	}
	if user.Type == session.TypeAdmin {
		return s.store
	}
	return store.Resource{BillsResource: store.OwnedBy(s.store.Bills(), user.Email)}
}

// newBillPage is the new bill form of a session with its controller.
type newBillPage struct {
	user       session.User
	controller *controller.NewBill
	view       *newBillView
	nav        *navRecorder

	// serializes submissions so navigation is read back by the right request
	submitMu sync.Mutex
}

func (s *Server) openNewBillPage(v visit) *newBillPage {
	p := &newBillPage{user: v.user, view: &newBillView{}, nav: &navRecorder{}}
	p.controller = controller.NewNewBill(controller.NewBillConfig{
		View:          p.view,
		Navigate:      p.nav.Navigate,
		Store:         s.storeFor(v.user),
		User:          v.user,
		UpdateTimeout: s.updateTimeout,
		Observer:      s.observer,
		Logger:        s.logger.WithComponent(log.ComponentNewBill),
	})
	s.pages.Set(v.id, p)
	return p
}

// newBillPageFor returns the open form of the session, opening one if the
// page was never loaded, has expired or belongs to another user.
func (s *Server) newBillPageFor(v visit) *newBillPage {
	if p, ok := s.pages.Get(v.id); ok && p.user == v.user {
		return p
	}
	return s.openNewBillPage(v)
}

// trackSubmission keeps shutdown waiting for the background update of p.
func (s *Server) trackSubmission(p *newBillPage) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		p.controller.Wait()
	}()
}

func (s *Server) refreshSessionGauge() {
	metrics.SetActiveSessions(s.sessions.Len())
}
