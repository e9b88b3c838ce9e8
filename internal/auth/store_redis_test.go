// Copyright (c) 2026 Imma Platform. All rights reserved.

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immahq/imma/internal/auth"
	"github.com/immahq/imma/internal/platform/apperr"
)

func newTestTokenRepository(t *testing.T) (*auth.RedisTokenRepository, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return auth.NewTokenRepository(client), server
}

/*
TestTokenRepository_IssueIsGetOrCreate verifies that a second issue for the
same principal returns the already-live secret instead of rotating it.
*/
func TestTokenRepository_IssueIsGetOrCreate(t *testing.T) {
	repository, _ := newTestTokenRepository(t)
	ctx := context.Background()

	// 1. First issue creates a fresh secret.
	first, created, err := repository.Issue(ctx, auth.PurposeVerification, "principal-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first)

	// 2. Second issue returns the same secret without creating.
	second, created, err := repository.Issue(ctx, auth.PurposeVerification, "principal-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
}

/*
TestTokenRepository_PurposesAreIsolated verifies that a verification secret
never resolves under the recovery purpose.
*/
func TestTokenRepository_PurposesAreIsolated(t *testing.T) {
	repository, _ := newTestTokenRepository(t)
	ctx := context.Background()

	secret, _, err := repository.Issue(ctx, auth.PurposeVerification, "principal-1", time.Hour)
	require.NoError(t, err)

	_, err = repository.FindBySecret(ctx, auth.PurposeRecovery, secret)
	requireInvalidLink(t, err)

	err = repository.FindByPrincipalAndSecret(ctx, auth.PurposeRecovery, "principal-1", secret)
	requireInvalidLink(t, err)
}

/*
TestTokenRepository_FindByPrincipalAndSecret covers match, mismatch, and
absence.
*/
func TestTokenRepository_FindByPrincipalAndSecret(t *testing.T) {
	repository, _ := newTestTokenRepository(t)
	ctx := context.Background()

	secret, _, err := repository.Issue(ctx, auth.PurposeVerification, "principal-1", time.Hour)
	require.NoError(t, err)

	// 1. Correct secret resolves.
	assert.NoError(t, repository.FindByPrincipalAndSecret(ctx, auth.PurposeVerification, "principal-1", secret))

	// 2. Wrong secret is an invalid link.
	requireInvalidLink(t, repository.FindByPrincipalAndSecret(ctx, auth.PurposeVerification, "principal-1", "not-the-secret"))

	// 3. Unknown principal is an invalid link.
	requireInvalidLink(t, repository.FindByPrincipalAndSecret(ctx, auth.PurposeVerification, "principal-2", secret))
}

/*
TestTokenRepository_Expiry verifies both directions of the keying die
together at the TTL.
*/
func TestTokenRepository_Expiry(t *testing.T) {
	repository, server := newTestTokenRepository(t)
	ctx := context.Background()

	secret, _, err := repository.Issue(ctx, auth.PurposeRecovery, "principal-1", time.Minute)
	require.NoError(t, err)

	server.FastForward(2 * time.Minute)

	_, err = repository.FindBySecret(ctx, auth.PurposeRecovery, secret)
	requireInvalidLink(t, err)
	requireInvalidLink(t, repository.FindByPrincipalAndSecret(ctx, auth.PurposeRecovery, "principal-1", secret))
}

/*
TestTokenRepository_InvalidateForPrincipal verifies an invalidated secret
stops resolving and the next issue creates a fresh one.
*/
func TestTokenRepository_InvalidateForPrincipal(t *testing.T) {
	repository, _ := newTestTokenRepository(t)
	ctx := context.Background()

	old, _, err := repository.Issue(ctx, auth.PurposeRecovery, "principal-1", time.Hour)
	require.NoError(t, err)

	require.NoError(t, repository.InvalidateForPrincipal(ctx, auth.PurposeRecovery, "principal-1"))

	// 1. The old secret is dead in both directions.
	_, err = repository.FindBySecret(ctx, auth.PurposeRecovery, old)
	requireInvalidLink(t, err)

	// 2. A new issue creates a different secret.
	fresh, created, err := repository.Issue(ctx, auth.PurposeRecovery, "principal-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, old, fresh)

	// 3. Invalidating when nothing is live is a no-op.
	require.NoError(t, repository.InvalidateForPrincipal(ctx, auth.PurposeVerification, "principal-1"))
}

/*
TestTokenRepository_Consume verifies a consumed secret is single-use.
*/
func TestTokenRepository_Consume(t *testing.T) {
	repository, _ := newTestTokenRepository(t)
	ctx := context.Background()

	secret, _, err := repository.Issue(ctx, auth.PurposeVerification, "principal-1", time.Hour)
	require.NoError(t, err)

	require.NoError(t, repository.Consume(ctx, auth.PurposeVerification, "principal-1", secret))

	requireInvalidLink(t, repository.FindByPrincipalAndSecret(ctx, auth.PurposeVerification, "principal-1", secret))
	_, err = repository.FindBySecret(ctx, auth.PurposeVerification, secret)
	requireInvalidLink(t, err)
}

// requireInvalidLink asserts the error is the INVALID_LINK application error.
func requireInvalidLink(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "INVALID_LINK", ae.Code)
}
