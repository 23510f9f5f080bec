package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const refreshTokenTTL = 30 * 24 * time.Hour

// GenerateAccessToken signs a short-lived access token for the user.
func GenerateAccessToken(secret string, userID uuid.UUID, ttl time.Duration) (string, error) {
	return sign(secret, jwt.MapClaims{
		"id":   userID.String(),
		"type": TokenTypeAccess,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	})
}

// GenerateRefreshToken signs a long-lived refresh token for the user.
func GenerateRefreshToken(secret string, userID uuid.UUID) (string, error) {
	return sign(secret, jwt.MapClaims{
		"id":   userID.String(),
		"type": TokenTypeRefresh,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(refreshTokenTTL).Unix(),
	})
}

func sign(secret string, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken parses and validates a signed token, returning its claims.
func VerifyToken(secret, token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// UserIDFromClaims extracts the subject user id from verified claims.
func UserIDFromClaims(claims jwt.MapClaims) (uuid.UUID, bool) {
	raw, ok := claims["id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
