// Copyright (c) 2026 Imma Platform. All rights reserved.

package sec_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immahq/imma/internal/platform/sec"
)

const (
	testAccessSecret  = "access-secret-0123456789-0123456789-abc"
	testRefreshSecret = "refresh-secret-0123456789-0123456789-ab"
)

func newTestTokenService(t *testing.T) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService(testAccessSecret, testRefreshSecret, "imma.test")
	require.NoError(t, err)
	return service
}

/*
TestNewTokenService_SecretValidation verifies the constructor rejects weak
or reused secrets.
*/
func TestNewTokenService_SecretValidation(t *testing.T) {
	strong := testAccessSecret

	tests := []struct {
		name          string
		accessSecret  string
		refreshSecret string
		wantError     bool
	}{
		{"valid_distinct_secrets", testAccessSecret, testRefreshSecret, false},
		{"short_access_secret", "short", testRefreshSecret, true},
		{"short_refresh_secret", testAccessSecret, "short", true},
		{"identical_secrets", strong, strong, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sec.NewTokenService(tt.accessSecret, tt.refreshSecret, "imma.test")
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

/*
TestAccessToken_RoundTrip verifies that a generated access token carries the
principal identity through verification.
*/
func TestAccessToken_RoundTrip(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.GenerateAccessToken("principal-1", "ada@example.com", "student", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "principal-1", claims.PrincipalID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "student", claims.Kind)
}

/*
TestRefreshToken_RoundTrip verifies the refresh token carries only email and
kind, and resolves through the refresh verifier.
*/
func TestRefreshToken_RoundTrip(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.GenerateRefreshToken("ada@example.com", "student", time.Hour)
	require.NoError(t, err)

	claims, err := service.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "student", claims.Kind)
}

/*
TestTokenFamilies_AreNotInterchangeable verifies the key-separation property:
a refresh token never verifies as an access token and vice versa.
*/
func TestTokenFamilies_AreNotInterchangeable(t *testing.T) {
	service := newTestTokenService(t)

	accessToken, err := service.GenerateAccessToken("principal-1", "ada@example.com", "student", time.Hour)
	require.NoError(t, err)

	refreshToken, err := service.GenerateRefreshToken("ada@example.com", "student", time.Hour)
	require.NoError(t, err)

	// 1. Refresh token presented to the access verifier must fail.
	_, err = service.VerifyAccessToken(refreshToken)
	assert.Error(t, err)

	// 2. Access token presented to the refresh verifier must fail.
	_, err = service.VerifyRefreshToken(accessToken)
	assert.Error(t, err)
}

/*
TestVerify_RejectsTamperedToken verifies the signature check catches payload
modification.
*/
func TestVerify_RejectsTamperedToken(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.GenerateAccessToken("principal-1", "ada@example.com", "student", time.Hour)
	require.NoError(t, err)

	// Flip a character inside the payload segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	payload[0] ^= 0x01
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = service.VerifyAccessToken(tampered)
	assert.Error(t, err)
}

/*
TestVerify_RejectsExpiredToken verifies that expiry is enforced.
*/
func TestVerify_RejectsExpiredToken(t *testing.T) {
	service := newTestTokenService(t)

	token, err := service.GenerateAccessToken("principal-1", "ada@example.com", "student", -time.Minute)
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(token)
	assert.Error(t, err)
}

/*
TestVerify_RejectsForeignIssuer verifies tokens minted by another deployment
are refused even with the same secrets.
*/
func TestVerify_RejectsForeignIssuer(t *testing.T) {
	service := newTestTokenService(t)

	foreign, err := sec.NewTokenService(testAccessSecret, testRefreshSecret, "someone-else")
	require.NoError(t, err)

	token, err := foreign.GenerateAccessToken("principal-1", "ada@example.com", "student", time.Hour)
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(token)
	assert.Error(t, err)
}
