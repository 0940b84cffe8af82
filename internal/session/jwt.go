package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/anonto42/threadline/backend/internal/models"
)

const defaultTokenTTL = 72 * time.Hour

// JWTProvider verifies the HS256 tokens issued after a Firebase login
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTProvider(secret string, ttl time.Duration) *JWTProvider {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTProvider{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (p *JWTProvider) GetSession(_ context.Context, r *http.Request) (Session, error) {
	raw, err := BearerToken(r)
	if err != nil || raw == "" {
		return Session{}, err
	}
	return p.Parse(raw)
}

// Parse validates a token string and returns the session it carries
func (p *JWTProvider) Parse(raw string) (Session, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{ActorID: claims.UserID, Email: claims.Email}, nil
}

// IssueToken signs a token for the given user
func (p *JWTProvider) IssueToken(user *models.User) (string, error) {
	now := p.now()
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
