// Package identity consumes the external identity provider's session
// credentials and change events. The provider owns passwords and token
// issuance; this core validates the shared-secret signature and treats
// the result as a verified oracle.
package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified caller as asserted by the provider.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Claims carried by a provider session token. The subject is the
// provider's stable user identifier.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// VerifyToken validates a provider-issued session token.
func VerifyToken(tokenString, secret string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	return &Identity{
		UserID: claims.Subject,
		Email:  strings.ToLower(strings.TrimSpace(claims.Email)),
		Name:   claims.Name,
	}, nil
}

// MintSessionToken issues a token the way the provider does. Used by
// the admin CLI and tests; production sessions always come from the
// provider.
func MintSessionToken(userID, email, name, secret string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
