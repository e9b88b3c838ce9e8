// Copyright (c) 2026 Imma Platform. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immahq/imma/internal/platform/dberr"
	"github.com/immahq/imma/internal/platform/sec"
)

// # Principal Repository

// PostgresPrincipalRepository implements [PrincipalRepository] using pgx.
//
// # Schema
//
// A single auth.principal table holds both kinds; the kind column plus a
// UNIQUE (kind, email) constraint gives per-kind email uniqueness, and the
// kind-specific columns stay NULL for the other kind.
type PostgresPrincipalRepository struct {
	pool *pgxpool.Pool
}

// NewPrincipalRepository creates a new PostgreSQL implementation of the PrincipalRepository.
func NewPrincipalRepository(pool *pgxpool.Pool) *PostgresPrincipalRepository {
	return &PostgresPrincipalRepository{pool: pool}
}

// principalColumns is the canonical SELECT column list for scanPrincipal.
const principalColumns = `
	id, kind, email, passwordhash, verified,
	firstname, lastname, birthdate, nationality,
	name, province, postalcode, documents,
	phone, createdat, updatedat`

/*
Create persists a new principal record into the auth.principal table.

Description: A duplicate (kind, email) pair violates the unique constraint
and is mapped to a client-safe apperr.Conflict.

Parameters:
  - context: context.Context
  - principal: *Principal (Entity to persist)

Returns:
  - error: apperr.Conflict or connectivity errors
*/
func (repository *PostgresPrincipalRepository) Create(context context.Context, principal *Principal) error {
	const query = `
		INSERT INTO auth.principal (
			id, kind, email, passwordhash, verified,
			firstname, lastname, birthdate, nationality,
			name, province, postalcode, documents,
			phone, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	now := time.Now()
	if principal.CreatedAt.IsZero() {
		principal.CreatedAt = now
	}
	principal.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		principal.ID,
		principal.Kind,
		principal.Email,
		principal.PasswordHash,
		principal.Verified,
		principal.FirstName,
		principal.LastName,
		principal.BirthDate,
		principal.Nationality,
		principal.Name,
		principal.Province,
		principal.PostalCode,
		principal.Documents,
		principal.Phone,
		principal.CreatedAt,
		principal.UpdatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return dberr.Wrap(err, "Account with this email")
		}
		return fmt.Errorf("postgres_principal_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByEmail retrieves a principal by (kind, email).

Parameters:
  - context: context.Context
  - kind: sec.PrincipalKind
  - email: string

Returns:
  - *Principal: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresPrincipalRepository) FindByEmail(context context.Context, kind sec.PrincipalKind, email string) (*Principal, error) {
	query := `SELECT ` + principalColumns + `
		FROM auth.principal
		WHERE kind = $1 AND email = $2`

	principal, err := repository.scanPrincipal(repository.pool.QueryRow(context, query, kind, email))
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}

	return principal, nil
}

/*
FindByID retrieves a principal by its unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Principal: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresPrincipalRepository) FindByID(context context.Context, id string) (*Principal, error) {
	query := `SELECT ` + principalColumns + `
		FROM auth.principal
		WHERE id = $1`

	principal, err := repository.scanPrincipal(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}

	return principal, nil
}

/*
UpdatePassword replaces only the principal's password hash.

Parameters:
  - context: context.Context
  - principalID: string
  - newHash: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresPrincipalRepository) UpdatePassword(context context.Context, principalID, newHash string) error {
	const query = `
		UPDATE auth.principal
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	if _, err := repository.pool.Exec(context, query, principalID, newHash, time.Now()); err != nil {
		return fmt.Errorf("postgres_principal_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
MarkVerified flips the principal's verified flag to true.

Parameters:
  - context: context.Context
  - principalID: string

Returns:
  - error: Persistence failures
*/
func (repository *PostgresPrincipalRepository) MarkVerified(context context.Context, principalID string) error {
	const query = `
		UPDATE auth.principal
		SET verified = TRUE, updatedat = $2
		WHERE id = $1`

	if _, err := repository.pool.Exec(context, query, principalID, time.Now()); err != nil {
		return fmt.Errorf("postgres_principal_repo_mark_verified_failed: %w", err)
	}

	return nil
}

// rowScanner abstracts pgx.Row for scanPrincipal.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPrincipal hydrates a Principal from a row using the canonical column order.
func (repository *PostgresPrincipalRepository) scanPrincipal(row rowScanner) (*Principal, error) {
	principal := &Principal{}
	err := row.Scan(
		&principal.ID,
		&principal.Kind,
		&principal.Email,
		&principal.PasswordHash,
		&principal.Verified,
		&principal.FirstName,
		&principal.LastName,
		&principal.BirthDate,
		&principal.Nationality,
		&principal.Name,
		&principal.Province,
		&principal.PostalCode,
		&principal.Documents,
		&principal.Phone,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return principal, nil
}
