package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	tok, err := iss.Issue("a@a.com", "Employee")
	require.NoError(t, err)

	c, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@a.com", c.Email)
	assert.Equal(t, "Employee", c.Type)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	iss, _ := NewIssuer("secret", time.Minute)
	other, _ := NewIssuer("other", time.Minute)

	tok, err := other.Issue("a@a.com", "Employee")
	require.NoError(t, err)
	_, err = iss.Parse(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	tok, err = iss.Issue("a@a.com", "Employee")
	require.NoError(t, err)
	iss.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = iss.Parse(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestContextHelpers(t *testing.T) {
	ctx := WithToken(context.Background(), "tok")
	assert.Equal(t, "tok", TokenFromContext(ctx))
	assert.Equal(t, "", TokenFromContext(context.Background()))

	_, ok := ClaimsFromContext(ctx)
	assert.False(t, ok)
	ctx = WithClaims(ctx, &Claims{Email: "a@a.com"})
	c, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "a@a.com", c.Email)
}

func TestMiddleware(t *testing.T) {
	iss, _ := NewIssuer("secret", time.Hour)
	var seen string
	h := iss.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := ClaimsFromContext(r.Context())
		seen = c.Email
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/bills", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	tok, _ := iss.Issue("a@a.com", "Employee")
	req := httptest.NewRequest(http.MethodGet, "/api/bills", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "a@a.com", seen)
}
