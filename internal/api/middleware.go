package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adityarao312/feednest/internal/token"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

type ctxKey int

const userIDKey ctxKey = iota

// userID pulls the authenticated user's id out of the request context. Only
// meaningful behind requireAuthMiddleware.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func requireAuthMiddleware(tokens *token.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(accessCookieName)
			if errors.Is(err, http.ErrNoCookie) {
				http.Error(w, "Unauthenticated", http.StatusUnauthorized)
				return
			}

			id, err := tokens.Verify(cookie.Value)
			if err != nil {
				http.Error(w, "Unauthenticated", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Sets the freshly issued pair as HTTP-only cookies.
func setAuthCookies(w http.ResponseWriter, https bool, pair token.Pair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Secure:   https,
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Secure:   https,
		HttpOnly: true,
	})
}

func clearAuthCookies(w http.ResponseWriter, https bool) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Secure:   https,
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}
