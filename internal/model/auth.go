package model

import "github.com/golang-jwt/jwt/v5"

// Role of an authenticated principal.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Claims are the JWT claims issued by the platform's auth service. Token
// issuance is external; this service only validates.
type Claims struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	jwt.RegisteredClaims
}

// Principal is a validated caller identity.
type Principal struct {
	UserID      string
	Role        string
	DisplayName string
}
