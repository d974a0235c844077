package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// Middleware rejects requests without a valid "Authorization: Bearer" token
// and stores the verified claims in the request context.
func (i *Issuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			http.Error(w, "Erreur 401", http.StatusUnauthorized)
			return
		}
		claims, err := i.Parse(parts[1])
		if err != nil {
			slog.WarnContext(r.Context(), "Token validation failed", "path", r.URL.Path, "error", err)
			http.Error(w, "Erreur 401", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}
