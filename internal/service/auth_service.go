package service

import (
	"edulearn/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator resolves a bearer token to a principal. Token issuance is
// owned by the platform's auth service; this side only validates.
type TokenValidator interface {
	Validate(tokenString string) (*model.Principal, error)
}

// AuthService validates platform-issued JWTs.
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a new auth service.
func NewAuthService(secret string) *AuthService {
	return &AuthService{jwtSecret: []byte(secret)}
}

// Validate parses and verifies a bearer token and returns the principal.
func (s *AuthService) Validate(tokenString string) (*model.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Role != model.RoleTeacher && claims.Role != model.RoleStudent {
		return nil, ErrInvalidToken
	}

	return &model.Principal{
		UserID:      claims.UserID,
		Role:        claims.Role,
		DisplayName: claims.DisplayName,
	}, nil
}
