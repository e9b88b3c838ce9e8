// Copyright (c) 2026 Imma Platform. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the [auth.TokenProvider] interface.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minSecretLength is the minimum acceptable HMAC secret size in bytes.
const minSecretLength = 32

// AccessClaims is the payload embedded inside a JWT access token.
//
// # Why custom claims?
//
// By embedding the email, principal ID, and kind directly inside the JWT,
// [middleware.Authenticate] can reconstruct the active principal context
// WITHOUT querying the database on every single API request.
type AccessClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	Email       string `json:"email"`
	PrincipalID string `json:"pid"`
	Kind        string `json:"knd"`
}

// RefreshClaims is the payload embedded inside a JWT refresh token.
//
// It deliberately carries no principal ID: the refresh flow re-resolves the
// principal by (kind, email) on every call, so an account that disappears is
// locked out immediately instead of surviving until access-token expiry.
type RefreshClaims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
	Kind  string `json:"knd"`
}

// TokenService signs and verifies access and refresh tokens using HS256.
//
// # Key Separation
//
// Access and refresh tokens are signed with DISTINCT secrets. A refresh
// token presented to an access-token verifier (or vice versa) fails the
// signature check, closing the token-confusion bug class.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
}

// NewTokenService creates a new TokenService from the two signing secrets.
// Both secrets must be at least 32 bytes and must differ from each other.
func NewTokenService(accessSecret, refreshSecret, issuer string) (*TokenService, error) {
	if len(accessSecret) < minSecretLength {
		return nil, fmt.Errorf("sec: access secret must be at least %d bytes", minSecretLength)
	}
	if len(refreshSecret) < minSecretLength {
		return nil, fmt.Errorf("sec: refresh secret must be at least %d bytes", minSecretLength)
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("sec: access and refresh secrets must be distinct")
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
	}, nil
}

// GenerateAccessToken creates a short-lived signed access token.
func (service *TokenService) GenerateAccessToken(principalID, email, kind string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Email:       email,
		PrincipalID: principalID,
		Kind:        kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// GenerateRefreshToken creates a longer-lived signed refresh token.
func (service *TokenService) GenerateRefreshToken(email, kind string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Email: email,
		Kind:  kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}

	return signedToken, nil
}

// VerifyAccessToken checks the signature and validity of an access token.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := service.verify(tokenString, claims, service.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken checks the signature and validity of a refresh token.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := service.verify(tokenString, claims, service.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// verify parses a JWT into claims, pinning the signing method to HMAC so a
// token with a forged "alg" header can never downgrade verification.
func (service *TokenService) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(service.issuer))

	if err != nil {
		return fmt.Errorf("sec: invalid token: %w", err)
	}

	if !token.Valid {
		return errors.New("sec: invalid token claims")
	}

	return nil
}
