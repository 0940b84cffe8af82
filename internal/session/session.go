// Package session resolves who is making a request. A Session is resolved
// once per request and handed to services explicitly.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Session identifies the signed-in actor. The zero value means no session.
type Session struct {
	ActorID string
	Email   string
}

func (s Session) Authenticated() bool { return s.ActorID != "" }

// Provider turns request credentials into a Session. A request without
// credentials yields the zero Session and no error.
type Provider interface {
	GetSession(ctx context.Context, r *http.Request) (Session, error)
}

var (
	ErrMalformedHeader = errors.New("authorization header must be in Bearer format")
	ErrInvalidToken    = errors.New("invalid or expired token")
)

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
// It returns "" with no error when the header is absent.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}
