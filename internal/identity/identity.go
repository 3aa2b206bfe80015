package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when the upstream verifier supplied no subject
var ErrUnauthenticated = errors.New("no verified identity on request")

// User is the verified caller. Both fields are opaque.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type ctxKey struct{}

// Headers names the request headers the token verifier in front of the gateway writes
type Headers struct {
	Subject string
	Email   string
}

// Middleware copies the verified identity, when present, into the request context
func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := h.fromRequest(r); ok {
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

func (h Headers) fromRequest(r *http.Request) (User, bool) {
	sub := strings.TrimSpace(r.Header.Get(h.Subject))
	if sub == "" {
		return User{}, false
	}
	return User{ID: sub, Email: strings.TrimSpace(r.Header.Get(h.Email))}, true
}

// WithUser stores u in ctx
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the verified caller or ErrUnauthenticated
func FromContext(ctx context.Context) (User, error) {
	u, ok := ctx.Value(ctxKey{}).(User)
	if !ok {
		return User{}, ErrUnauthenticated
	}
	return u, nil
}
