package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/user"
	"github.com/duskveil/game-api/internal/web"
)

// Middleware validates the bearer token, reloads the player row and injects
// it into the request context. Failure at any step is a 401: bad or expired
// token, unknown username, deactivated account.
func Middleware(issuer *TokenIssuer, users *user.Service, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				web.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			username, err := issuer.Validate(raw)
			if err != nil {
				web.Error(w, http.StatusUnauthorized, "could not validate credentials")
				return
			}
			u, err := users.Repo().GetByUsername(r.Context(), username)
			if err != nil {
				logger.Debugw("token user lookup failed", "username", username, "err", err)
				web.Error(w, http.StatusUnauthorized, "could not validate credentials")
				return
			}
			if !u.IsActive {
				web.Error(w, http.StatusUnauthorized, "inactive user")
				return
			}
			next.ServeHTTP(w, r.WithContext(web.WithUser(r.Context(), u)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[len("bearer "):])
}
