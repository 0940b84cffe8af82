package session

import (
	"context"
	"net/http"

	"firebase.google.com/go/v4/auth"
)

// TokenVerifier is the part of *auth.Client the provider needs
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseProvider accepts Firebase ID tokens directly as bearer tokens
type FirebaseProvider struct {
	verifier TokenVerifier
}

func NewFirebaseProvider(verifier TokenVerifier) *FirebaseProvider {
	return &FirebaseProvider{verifier: verifier}
}

func (p *FirebaseProvider) GetSession(ctx context.Context, r *http.Request) (Session, error) {
	raw, err := BearerToken(r)
	if err != nil || raw == "" {
		return Session{}, err
	}
	identity, err := p.Verify(ctx, raw)
	if err != nil {
		return Session{}, err
	}
	return Session{ActorID: identity.UID, Email: identity.Email}, nil
}

// Identity is what a verified ID token says about its holder
type Identity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// Verify checks an ID token with Firebase and extracts the profile claims
func (p *FirebaseProvider) Verify(ctx context.Context, idToken string) (Identity, error) {
	token, err := p.verifier.VerifyIDToken(ctx, idToken)
	if err != nil || token.UID == "" {
		return Identity{}, ErrInvalidToken
	}
	id := Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		id.Name = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		id.Picture = picture
	}
	return id, nil
}
