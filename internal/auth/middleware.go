package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linkstash/linkstash/internal/platform/httpx"
	"github.com/linkstash/linkstash/internal/token"
)

// Middleware gates requests on a valid bearer session token.
type Middleware struct {
	Logger *slog.Logger
	Codec  *token.Codec
	Repo   Repository
}

// RequireUser verifies the bearer token, resolves the referenced user and
// attaches the identity to the request context. A token whose user no longer
// exists is rejected.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.resolve(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}

// RequireAdmin is RequireUser plus a role check.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.resolve(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if identity.Role != RoleAdmin {
			httpx.RespondError(w, fmt.Errorf("%w: admin resource, access denied", httpx.ErrForbidden))
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}

func (m Middleware) resolve(r *http.Request) (Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: missing bearer token", httpx.ErrUnauthorized)
	}

	claims, err := m.Codec.ParseSession(raw)
	if err != nil {
		return Identity{}, tokenError(err)
	}

	user, err := m.Repo.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("session user lookup failed", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		}
		return Identity{}, fmt.Errorf("%w: user not found", httpx.ErrUnauthorized)
	}

	return user.Sanitized(), nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
