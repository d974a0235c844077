package controller

import (
	"billed/internal/routes"
	"billed/internal/session"
)

// Logout clears the session and returns to the login page.
type Logout struct {
	storage  session.Storage
	navigate routes.Navigator
}

func NewLogout(storage session.Storage, navigate routes.Navigator) *Logout {
	return &Logout{storage: storage, navigate: navigate}
}

func (l *Logout) HandleClick() {
	if l.storage != nil {
		l.storage.Clear()
	}
	if l.navigate != nil {
		l.navigate(routes.Login)
	}
}
