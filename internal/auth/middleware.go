package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/snippet-api/internal/model"
)

// CookieName is the cookie the GitHub callback stores the access token in.
const CookieName = "token"

// contextKey is unexported so no other package can read or overwrite the
// identity stored in a request context.
type contextKey string

const identityKey contextKey = "identity"

// PasswordChecker verifies a username/password pair. The auth service
// implements it against the user store.
type PasswordChecker interface {
	CheckPassword(ctx context.Context, username, password string) (*model.Identity, error)
}

var errBadCredentials = errors.New("auth: invalid credentials")

// Identify attaches the caller's identity to the request context.
//
// It never rejects a request for lacking credentials: anonymous requests
// pass through with no identity. It does reject, with 401, a request whose
// Authorization header is present but invalid. A stale token cookie is
// ignored instead, since browsers keep sending it after it expires.
//
// passwords may be nil, which disables Basic auth.
func Identify(tokens *TokenService, passwords PasswordChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identify(r, tokens, passwords)
			if err != nil {
				slog.Debug("rejected credentials", "path", r.URL.Path, "error", err)
				unauthorized(w, "Invalid authentication credentials.")
				return
			}
			if id != nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests with 401. It must run after Identify.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			unauthorized(w, "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller, or nil for an anonymous request.
func IdentityFromContext(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(identityKey).(*model.Identity)
	return id
}

// identify returns (nil, nil) for an anonymous request.
func identify(r *http.Request, tokens *TokenService, passwords PasswordChecker) (*model.Identity, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, _, _ := strings.Cut(header, " ")
		switch strings.ToLower(scheme) {
		case "bearer":
			token := strings.TrimSpace(header[len(scheme):])
			if token == "" {
				return nil, errBadCredentials
			}
			return tokens.Validate(token)
		case "basic":
			if passwords == nil {
				return nil, errBadCredentials
			}
			username, password, ok := r.BasicAuth()
			if !ok {
				return nil, errBadCredentials
			}
			return passwords.CheckPassword(r.Context(), username, password)
		default:
			return nil, errBadCredentials
		}
	}

	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		if id, err := tokens.Validate(cookie.Value); err == nil {
			return id, nil
		}
	}
	return nil, nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	// message is one of two constants above; no escaping needed
	w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}
