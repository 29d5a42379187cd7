package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/recipe-api/internal/model"
)

// contextKey is unexported so only this package can read or write the
// authenticated user ID in a request context.
type contextKey string

const userIDKey contextKey = "userID"

// UserLookup is the slice of the user store RequireAuth needs.
// *sqlite.DB satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// ErrNoCredentials is returned when the request carries no token at all.
var ErrNoCredentials = errors.New("auth: authentication credentials were not provided")

// UnauthorizedFunc writes the 401 response. The handler package provides one
// that renders the standard error body.
type UnauthorizedFunc func(w http.ResponseWriter, r *http.Request, err error)

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the token from the Authorization header ("Bearer <token>", or
// "Token <token>" for clients written against the older scheme), validates it,
// confirms the user still exists and is active, and stores the user ID in the
// request context. Anything else stops the chain with a 401 before any
// handler logic runs.
func RequireAuth(tokens *TokenService, users UserLookup, unauthorized UnauthorizedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticate(r, tokens, users)
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID. Exported for tests that
// call handlers directly without the middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. It returns ("", false) outside a RequireAuth-protected route.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func authenticate(r *http.Request, tokens *TokenService, users UserLookup) (string, error) {
	raw, err := BearerToken(r)
	if err != nil {
		return "", err
	}

	userID, err := tokens.Validate(raw)
	if err != nil {
		return "", err
	}

	user, err := users.GetUserByID(r.Context(), userID)
	if err != nil {
		return "", errors.New("auth: user inactive or deleted")
	}
	if !user.IsActive {
		return "", errors.New("auth: user inactive or deleted")
	}
	return user.ID, nil
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrNoCredentials
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found {
		return "", errors.New("auth: invalid authorization header")
	}
	switch strings.ToLower(scheme) {
	case "bearer", "token":
	default:
		return "", errors.New("auth: unsupported authorization scheme")
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.Contains(token, " ") {
		return "", errors.New("auth: invalid authorization header")
	}
	return token, nil
}
