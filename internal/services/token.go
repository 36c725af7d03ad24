package services

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/inkpost/apiserver/types"
)

// DefaultTokenTTL is the validity window of an issued token.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenService issues and verifies HS256 bearer tokens.
// Tokens are not stored; a token stays valid until it expires.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type tokenClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewTokenService constructs a TokenService. An empty secret is rejected so
// the server never issues tokens it cannot verify.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token carrying the identity's user id and email.
func (s *TokenService) Issue(identity types.Identity) (string, error) {
	now := s.now()
	claims := tokenClaims{
		ID:    identity.UserID.String(),
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature and expiry of a token and returns its identity.
// Expired tokens yield ErrTokenExpired; every other failure is ErrUnauthorized.
func (s *TokenService) Verify(tokenString string) (types.Identity, error) {
	claims := tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return types.Identity{}, newError(ErrTokenExpired, "Token expired")
		}
		return types.Identity{}, newError(ErrUnauthorized, "Invalid token")
	}

	userID, err := types.ParseUserID(claims.ID)
	if err != nil {
		return types.Identity{}, newError(ErrUnauthorized, "Invalid token")
	}
	return types.Identity{UserID: userID, Email: claims.Email}, nil
}
