package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// UserKey holds the JSON-encoded User.
	UserKey = "user"
	// TokenKey holds the bearer token issued at login.
	TokenKey = "jwt"
)

const (
	TypeEmployee = "Employee"
	TypeAdmin    = "Admin"
)

// User is the identity stored at login.
type User struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

var (
	ErrNoUser      = errors.New("no user in session")
	ErrInvalidUser = errors.New("invalid user in session")
)

// CurrentUser decodes the user stored under UserKey.
func CurrentUser(s Storage) (User, error) {
	if s == nil {
		return User{}, ErrNoUser
	}
	raw, ok := s.GetItem(UserKey)
	if !ok || strings.TrimSpace(raw) == "" {
		return User{}, ErrNoUser
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return u, nil
}

// SaveUser stores the user under UserKey.
func SaveUser(s Storage, u User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	s.SetItem(UserKey, string(raw))
	return nil
}

// Token returns the bearer token stored at login, if any.
func Token(s Storage) string {
	if s == nil {
		return ""
	}
	v, _ := s.GetItem(TokenKey)
	return v
}
