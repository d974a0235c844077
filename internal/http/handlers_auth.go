package http

import (
	"net/http"

	"billed/internal/controller"
	"billed/internal/log"
	"billed/internal/routes"
	"billed/internal/session"
)

type loginPage struct {
	Email string
	Type  string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", loginPage{Type: session.TypeEmployee})
}

// handleLogin stores the user and a store token in the session. Credentials
// are not checked.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Format de requête invalide").Write(w)
		return
	}
	user := session.User{Email: p.Get("email"), Type: p.Get("type")}
	if user.Type != session.TypeAdmin {
		user.Type = session.TypeEmployee
	}
	if user.Email == "" {
		s.render(w, r, http.StatusUnprocessableEntity, "login.html",
			loginPage{Type: user.Type, Error: "Veuillez renseigner votre e-mail"})
		return
	}

	id, st := s.ensureSession(w, r)
	st.Clear()
	// a form opened by the previous user must not submit as the new one
	s.pages.Delete(id)
	if err := session.SaveUser(st, user); err != nil {
		logger.ErrorContext(r.Context(), "Failed to save user", log.FieldError, err)
		StatusError(http.StatusInternalServerError).Write(w)
		return
	}
	if s.issuer != nil {
		token, err := s.issuer.Issue(user.Email, user.Type)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to issue token", log.FieldError, err)
			StatusError(http.StatusInternalServerError).Write(w)
			return
		}
		st.SetItem(session.TokenKey, token)
	}
	logger.InfoContext(r.Context(), "User signed in", log.FieldEmail, user.Email, "type", user.Type)

	if p.IsJSON() {
		writeJSON(w, http.StatusOK, map[string]string{"redirect": routes.Path(routes.Bills)})
		return
	}
	redirect(w, r, routes.Bills)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	nav := &navRecorder{}
	if id, st, ok := s.lookupSession(r); ok {
		controller.NewLogout(st, nav.Navigate).HandleClick()
		s.pages.Delete(id)
	} else {
		controller.NewLogout(nil, nav.Navigate).HandleClick()
	}
	route, _ := nav.Take()
	redirect(w, r, route)
}
