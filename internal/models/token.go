package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the JWT claims carried by a session token issued after a
// successful OTP verification or password sign-in.
type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}
