package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role the back-office issues today.
const RoleAdmin = "admin"

// AdminClaims is the typed JWT the back-office mints for operators. The
// operator identity travels in the registered subject claim.
type AdminClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
