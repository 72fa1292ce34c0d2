package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskway/taskway/internal/platform/httpx"
	"github.com/taskway/taskway/internal/shared"
)

// Middleware verifies bearer tokens and stores the decoded claims in the
// request context. Requests without a valid, unrevoked token are rejected
// before any handler runs.
type Middleware struct {
	Tokens   *Tokens
	Denylist *Denylist
	Logger   *slog.Logger
}

// RequireToken is the authentication gate for every guarded route group.
func (m Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		claims, err := m.Tokens.Verify(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		revoked, err := m.Denylist.IsRevoked(r.Context(), claims.TokenID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("revocation check failed", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if revoked {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		ctx := shared.ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
