// Package auth issues and checks the access tokens of the record server.
// A token's subject is the lower-case wallet address that logged in.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "docverify"

// GenerateToken signs an HS256 token for address valid for ttl from now.
func GenerateToken(address string, secretKey []byte, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expires := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strings.ToLower(address),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})

	s, err := token.SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, expires, nil
}

// AddressFromToken validates tokenString and returns its subject.
func AddressFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", common.ErrTokenExpired
	}
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
