package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/OpenCaseDesk/casedesk/internal/accounts"
)

// Middleware creates an HTTP middleware that authenticates requests.
// It:
// 1. Extracts the Authorization header
// 2. Verifies the bearer token and resolves the user ID
// 3. Loads the user and their permission set
// 4. Injects an AuthContext into the request context
//
// If any step fails (missing token, invalid token, unknown user), the request
// proceeds without auth context. Handlers decide whether auth is required.
// This allows public, protected and optional-auth endpoints to share one chain.
func Middleware(tokens *TokenManager, accountsService *accounts.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := ExtractBearerToken(authHeader)
			if err != nil {
				slog.Debug("malformed authorization header", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.Verify(tokenString)
			if err != nil {
				slog.Warn("token verification failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			user, err := accountsService.GetUser(r.Context(), userID)
			if err != nil {
				if !errors.Is(err, accounts.ErrUserNotFound) {
					slog.Error("failed to load user for token", "user_id", userID, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			perms, err := accountsService.PermissionSet(r.Context(), userID)
			if err != nil {
				slog.Error("failed to load permission set", "user_id", userID, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			authCtx := &AuthContext{
				UserID:      user.ID,
				Username:    user.Username,
				Permissions: perms,
			}
			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}

// RequireAuth returns a middleware that requires authentication.
// If no auth context is found, returns 401 Unauthorized.
func RequireAuth(tokens *TokenManager, accountsService *accounts.Service) func(http.Handler) http.Handler {
	authMiddleware := Middleware(tokens, accountsService)

	return func(next http.Handler) http.Handler {
		return authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetAuthContext(r.Context()) == nil {
				slog.Warn("authentication required but not provided",
					"method", r.Method,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"authentication required"}`))
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
