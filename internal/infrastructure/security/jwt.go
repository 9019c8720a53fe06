package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// AdminTokenType marks tokens issued by the admin login.
const AdminTokenType = "admin_auth"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingSecret = errors.New("jwt secret not configured")
)

// ValidateJWT validates an HS256 token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	if jwtSecret == "" {
		return nil, ErrMissingSecret
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// GenerateAdminToken signs an admin token valid for ttl from now.
func GenerateAdminToken(jwtSecret string, ttl time.Duration, now time.Time) (string, error) {
	if jwtSecret == "" {
		return "", ErrMissingSecret
	}
	claims := jwt.MapClaims{
		"role": "admin",
		"type": AdminTokenType,
		"jti":  GenerateULID(),
		"iat":  now.UTC().Unix(),
		"exp":  now.UTC().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ValidateAdminToken reports whether tokenString is a live admin token.
func ValidateAdminToken(tokenString, jwtSecret string) bool {
	if tokenString == "" {
		return false
	}
	claims, err := ValidateJWT(tokenString, jwtSecret)
	if err != nil {
		return false
	}
	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != AdminTokenType {
		return false
	}
	role, ok := claims["role"].(string)
	return ok && role == "admin"
}
