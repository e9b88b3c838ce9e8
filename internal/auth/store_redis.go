// Copyright (c) 2026 Imma Platform. All rights reserved.

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/immahq/imma/internal/platform/apperr"
	"github.com/immahq/imma/internal/platform/constants"
	"github.com/immahq/imma/internal/platform/sec"
)

// # Single-Use Token Repository

// RedisTokenRepository implements [TokenRepository] using Redis.
//
// # Keying
//
// Every live token occupies two keys with the same TTL:
//
//	auth:token:{purpose}:principal:{principalID} -> secret
//	auth:token:{purpose}:secret:{secret}         -> principalID
//
// The first direction serves verification (principal known from the link),
// the second serves recovery (only the secret is known). Expiry is delegated
// entirely to Redis TTLs; no sweeper is needed.
type RedisTokenRepository struct {
	client *redis.Client
}

// NewTokenRepository creates a new Redis-backed TokenRepository.
func NewTokenRepository(client *redis.Client) *RedisTokenRepository {
	return &RedisTokenRepository{client: client}
}

/*
Issue returns a live secret for the principal, creating one if needed.

Description: Uses SET NX on the principal key so two concurrent issue calls
can never both create a token; the loser of the race reads and returns the
winner's secret.

Parameters:
  - context: context.Context
  - purpose: TokenPurpose
  - principalID: string
  - ttl: time.Duration

Returns:
  - string: The live secret
  - bool: true when this call created the secret
  - error: Generation or storage failures
*/
func (repository *RedisTokenRepository) Issue(context context.Context, purpose TokenPurpose, principalID string, ttl time.Duration) (string, bool, error) {
	secret, err := sec.GenerateSecureToken(TokenSecretLength)
	if err != nil {
		return "", false, fmt.Errorf("redis_token_generate_failed: %w", err)
	}

	principalKey := tokenPrincipalKey(purpose, principalID)

	stored, err := repository.client.SetNX(context, principalKey, secret, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis_token_set_failed: %w", err)
	}

	if !stored {
		// A live secret already exists; return it instead of rotating.
		existing, getErr := repository.client.Get(context, principalKey).Result()
		if getErr == nil {
			return existing, false, nil
		}
		if !errors.Is(getErr, redis.Nil) {
			return "", false, fmt.Errorf("redis_token_get_failed: %w", getErr)
		}
		// The existing secret expired between SET NX and GET. Claim the slot
		// with the freshly generated secret.
		if err := repository.client.Set(context, principalKey, secret, ttl).Err(); err != nil {
			return "", false, fmt.Errorf("redis_token_set_failed: %w", err)
		}
	}

	// Store the reverse mapping with the same TTL.
	if err := repository.client.Set(context, tokenSecretKey(purpose, secret), principalID, ttl).Err(); err != nil {
		return "", false, fmt.Errorf("redis_token_reverse_set_failed: %w", err)
	}

	return secret, true, nil
}

/*
FindByPrincipalAndSecret checks a presented secret against the live one.

Description: Comparison is constant-time; absence, expiry, and mismatch are
indistinguishable to the caller.

Parameters:
  - context: context.Context
  - purpose: TokenPurpose
  - principalID: string
  - secret: string

Returns:
  - error: apperr.InvalidLink or connectivity failures
*/
func (repository *RedisTokenRepository) FindByPrincipalAndSecret(context context.Context, purpose TokenPurpose, principalID, secret string) error {
	stored, err := repository.client.Get(context, tokenPrincipalKey(purpose, principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperr.InvalidLink()
		}
		return fmt.Errorf("redis_token_get_failed: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) != 1 {
		return apperr.InvalidLink()
	}

	return nil
}

/*
FindBySecret resolves a bare secret to its principal ID.

Parameters:
  - context: context.Context
  - purpose: TokenPurpose
  - secret: string

Returns:
  - string: Principal ID
  - error: apperr.InvalidLink or connectivity failures
*/
func (repository *RedisTokenRepository) FindBySecret(context context.Context, purpose TokenPurpose, secret string) (string, error) {
	principalID, err := repository.client.Get(context, tokenSecretKey(purpose, secret)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.InvalidLink()
		}
		return "", fmt.Errorf("redis_token_get_failed: %w", err)
	}

	return principalID, nil
}

/*
InvalidateForPrincipal drops the principal's live secret, if any.

Parameters:
  - context: context.Context
  - purpose: TokenPurpose
  - principalID: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisTokenRepository) InvalidateForPrincipal(context context.Context, purpose TokenPurpose, principalID string) error {
	principalKey := tokenPrincipalKey(purpose, principalID)

	secret, err := repository.client.Get(context, principalKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("redis_token_get_failed: %w", err)
	}

	if err := repository.client.Del(context, principalKey, tokenSecretKey(purpose, secret)).Err(); err != nil {
		return fmt.Errorf("redis_token_invalidate_failed: %w", err)
	}

	return nil
}

/*
Consume removes both directions of a spent secret.

Parameters:
  - context: context.Context
  - purpose: TokenPurpose
  - principalID: string
  - secret: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisTokenRepository) Consume(context context.Context, purpose TokenPurpose, principalID, secret string) error {
	err := repository.client.Del(context,
		tokenPrincipalKey(purpose, principalID),
		tokenSecretKey(purpose, secret),
	).Err()

	if err != nil {
		return fmt.Errorf("redis_token_consume_failed: %w", err)
	}

	return nil
}

// tokenPrincipalKey builds the principal-to-secret key.
func tokenPrincipalKey(purpose TokenPurpose, principalID string) string {
	return fmt.Sprintf("%s%s:principal:%s", constants.RedisPrefixToken, purpose, principalID)
}

// tokenSecretKey builds the secret-to-principal key.
func tokenSecretKey(purpose TokenPurpose, secret string) string {
	return fmt.Sprintf("%s%s:secret:%s", constants.RedisPrefixToken, purpose, secret)
}
