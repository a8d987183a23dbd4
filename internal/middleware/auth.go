package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/venus-savings/venus/internal/ctxkeys"
	"github.com/venus-savings/venus/internal/repository"
	"github.com/venus-savings/venus/internal/service"
)

// AuthMiddleware adds the user to the context when the session cookie is valid.
// Guests pass through untouched; RequireAuth decides what they may reach.
func AuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := authService.TokenFromRequest(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := authService.VerifyJWT(token)
			if err != nil {
				// Invalid or expired token, clear cookie and continue
				authService.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			user, err := authService.UserByID(r.Context(), userID)
			if errors.Is(err, repository.ErrUserNotFound) {
				authService.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				// The session may still be valid, keep the cookie
				slog.Error("failed to load session user", "error", err, "user_id", userID)
				writeJSONError(w, http.StatusServiceUnavailable, "the service is temporarily unavailable.")
				return
			}

			// Security: Remove password hash from context
			user.PasswordHash = ""

			ctx := ctxkeys.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without an authenticated user.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			writeJSONError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	}
}
