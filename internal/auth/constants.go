// Copyright (c) 2026 Imma Platform. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// Short-lived (1 hour) to minimize the impact of a leaked token.
	AccessTokenTTL = 1 * time.Hour

	// RefreshTokenTTL is the duration a refresh token remains valid.
	// One day: the refresh cookie outlives the access token, but the
	// principal still re-authenticates daily.
	RefreshTokenTTL = 24 * time.Hour

	// VerificationTokenTTL is the duration an email verification link stays
	// usable. Long-lived (24 hours) as users might not check email immediately.
	VerificationTokenTTL = 24 * time.Hour

	// RecoveryTokenTTL is the duration a password reset link stays usable.
	// Short-lived (1 hour) for security.
	RecoveryTokenTTL = 1 * time.Hour

	// TokenSecretLength is the byte length of the random secret embedded in
	// verification and recovery links (hex-encoded to twice this length).
	TokenSecretLength = 32
)
