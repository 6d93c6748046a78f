package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// GenerateSessionToken issues a short-lived token carrying the gateway
// session id. The upstream token itself never leaves the server; the
// browser only ever sees this wrapper.
func GenerateSessionToken(sessionID string, jwtSecret string) (string, error) {
	claims := jwt.MapClaims{
		"sid": sessionID,
		"exp": time.Now().Add(time.Hour * 24).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

func ValidateSessionToken(tokenStr string, jwtSecret string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", err
	}
	if err := claims.Valid(); err != nil {
		return "", err
	}

	sessionID, ok := claims["sid"].(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("token has no session id")
	}

	return sessionID, nil
}
