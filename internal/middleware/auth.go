package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mroshb/word_game/internal/security"
	"github.com/mroshb/word_game/pkg/errors"
	"github.com/mroshb/word_game/pkg/logger"
)

type contextKey struct{}

var identityKey = contextKey{}

// Authenticator resolves the caller's identity from a signed token.
type Authenticator struct {
	secret string
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: secret}
}

// Require rejects requests without a valid token. The token is read from the
// Authorization bearer header, or from the token query parameter for
// websocket upgrades where browsers cannot set headers.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "missing token")
			return
		}

		claims, err := security.ValidateJWT(token, a.secret)
		if err != nil {
			logger.Debug("Rejected token", "error", err, "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Identity())))
	})
}

func WithIdentity(ctx context.Context, id security.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity attached by Require.
func IdentityFrom(ctx context.Context) (security.Identity, bool) {
	id, ok := ctx.Value(identityKey).(security.Identity)
	return id, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return r.URL.Query().Get("token")
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}
