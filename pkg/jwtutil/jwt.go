package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"offer-service/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the caller identity passed through to request logs.
type Claims struct {
	Email  string `json:"email"`
	UserID uint   `json:"user_id"`
	jwt.RegisteredClaims
}

var jwtConfig *config.JWTConfig

// Initialize sets up the JWT utility with configuration
func Initialize(cfg *config.JWTConfig) {
	jwtConfig = cfg
}

// Enabled reports whether a signing key is configured. Without one, bearer
// tokens are ignored entirely.
func Enabled() bool {
	return jwtConfig != nil && jwtConfig.SigningKey != ""
}

// GenerateToken creates a signed token for a user. Used by tests and tooling;
// the service itself has no login endpoint.
func GenerateToken(email string, userID uint) (string, error) {
	if !Enabled() {
		return "", errors.New("JWT signing key not configured")
	}

	claims := &Claims{
		Email:  email,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(jwtConfig.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.SigningKey))
}

// ValidateToken validates the token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	if !Enabled() {
		return nil, errors.New("JWT signing key not configured")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtConfig.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
