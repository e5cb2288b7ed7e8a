package transfer

import "github.com/golang-jwt/jwt/v5"

// CustomClaims identify the user on whose behalf the post-management
// collaborator calls the scheduling API.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
