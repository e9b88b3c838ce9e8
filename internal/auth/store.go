// Copyright (c) 2026 Imma Platform. All rights reserved.

package auth

import (
	"context"
	"time"

	"github.com/immahq/imma/internal/platform/sec"
)

// # Principal Data Access

// PrincipalRepository defines the data access contract for principal accounts.
type PrincipalRepository interface {

	/*
		FindByID returns the principal with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Principal: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Principal, error)

	/*
		FindByEmail returns the principal with the given email within one kind.

		Description: Email uniqueness is scoped per kind, so the kind is part
		of the lookup key.

		Parameters:
		  - context: context.Context
		  - kind: sec.PrincipalKind
		  - email: string

		Returns:
		  - *Principal: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, kind sec.PrincipalKind, email string) (*Principal, error)

	/*
		Create persists a brand-new principal account to the storage.

		Description: A duplicate (kind, email) pair surfaces as apperr.Conflict.

		Parameters:
		  - context: context.Context
		  - principal: *Principal

		Returns:
		  - error: apperr.Conflict or persistence failures
	*/
	Create(context context.Context, principal *Principal) error

	/*
		UpdatePassword replaces only the principal's password hash.

		Parameters:
		  - context: context.Context
		  - principalID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, principalID, newHash string) error

	/*
		MarkVerified flips the principal's verified flag to true.

		Description: The transition is one-way; verified principals never
		return to the unverified state.

		Parameters:
		  - context: context.Context
		  - principalID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkVerified(context context.Context, principalID string) error
}

// # Single-Use Token Data Access

// TokenPurpose discriminates the two single-use token families. A secret
// issued for one purpose can never be resolved under the other.
type TokenPurpose string

const (
	// PurposeVerification marks email ownership confirmation tokens.
	PurposeVerification TokenPurpose = "verification"

	// PurposeRecovery marks password reset tokens.
	PurposeRecovery TokenPurpose = "recovery"
)

// TokenRepository defines the contract for storing volatile single-use
// email link secrets.
//
// Implementations key the token both ways (principal to secret and secret to
// principal) so verification can match against a known principal while
// recovery resolves a bare secret from the link.
type TokenRepository interface {

	/*
		Issue returns a live secret for the principal under the given purpose.

		Description: If a live secret already exists it is returned unchanged
		(created == false) instead of being rotated; otherwise a fresh random
		secret is stored atomically with the TTL (created == true).

		Parameters:
		  - context: context.Context
		  - purpose: TokenPurpose
		  - principalID: string
		  - ttl: time.Duration

		Returns:
		  - string: The live secret
		  - bool: Whether a new secret was created by this call
		  - error: Generation or storage failures
	*/
	Issue(context context.Context, purpose TokenPurpose, principalID string, ttl time.Duration) (string, bool, error)

	/*
		FindByPrincipalAndSecret checks that the given secret is the live
		secret of the principal under the given purpose.

		Description: The comparison is constant-time. Absent, expired, and
		mismatched secrets all return apperr.InvalidLink so the caller leaks
		no information about token state.

		Parameters:
		  - context: context.Context
		  - purpose: TokenPurpose
		  - principalID: string
		  - secret: string

		Returns:
		  - error: apperr.InvalidLink or connectivity failures
	*/
	FindByPrincipalAndSecret(context context.Context, purpose TokenPurpose, principalID, secret string) error

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
	FindBySecret(context context.Context, purpose TokenPurpose, secret string) (string, error)

	/*
		InvalidateForPrincipal drops any live secret of the principal under
		the given purpose.

		Description: Used before issuing a replacement recovery token so only
		the newest link resolves. A no-op when nothing is live.

		Parameters:
		  - context: context.Context
		  - purpose: TokenPurpose
		  - principalID: string

		Returns:
		  - error: Deletion failures
	*/
	InvalidateForPrincipal(context context.Context, purpose TokenPurpose, principalID string) error

	/*
		Consume removes a spent secret after a successful verify or reset.

		Description: Deletes both directions of the keying. Callers treat a
		failure here as an observability event, not a workflow failure, since
		the state change it follows has already committed.

		Parameters:
		  - context: context.Context
		  - purpose: TokenPurpose
		  - principalID: string
		  - secret: string

		Returns:
		  - error: Deletion failures
	*/
	Consume(context context.Context, purpose TokenPurpose, principalID, secret string) error
}
