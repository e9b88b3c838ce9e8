// Copyright (c) 2026 Imma Platform. All rights reserved.

/*
Package auth implements the credential, session, and recovery layer of Imma.

It defines the core identity entity (Principal) and the workflows that govern
its lifecycle: registration, email verification, login with dual JWTs,
session refresh, and password recovery.

# Architecture

This layer is the "Truth" of the identity system. A Principal is an
authenticable account discriminated by kind (student or university); email
uniqueness is scoped per kind, so both sides of the platform can register the
same address independently.
*/
package auth

import (
	"time"

	"github.com/immahq/imma/internal/platform/sec"
)

// # Domain Entities

// Principal represents a registered account of the Imma platform.
//
// Kind-specific attributes are populated only for their own kind and are
// omitted from JSON when empty. The password hash never leaves the server.
type Principal struct {
	ID           string            `json:"id"`
	Kind         sec.PrincipalKind `json:"kind"`
	Email        string            `json:"email"`
	PasswordHash string            `json:"-"` // Explicitly omitted from JSON for security.
	Verified     bool              `json:"verified"`

	// Student attributes
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"` // YYYY-MM-DD
	Nationality string `json:"nationality,omitempty"`

	// University attributes
	Name       string   `json:"name,omitempty"`
	Province   string   `json:"province,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	Documents  []string `json:"documents,omitempty"` // URLs of supporting documents

	// Shared attributes
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns a human-readable name for the principal, used when
// addressing outbound email.
func (p *Principal) DisplayName() string {
	if p.Kind == sec.KindUniversity {
		return p.Name
	}
	if p.FirstName == "" && p.LastName == "" {
		return p.Email
	}
	return p.FirstName + " " + p.LastName
}

// # Field Identifiers

// Global field names for validation and identity mapping in the auth domain.
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldKind        = "kind"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldBirthDate   = "birth_date"
	FieldNationality = "nationality"
	FieldName        = "name"
	FieldProvince    = "province"
	FieldPostalCode  = "postal_code"
	FieldPhone       = "phone"
	FieldDocuments   = "documents"
	FieldToken       = "token"
	FieldPrincipalID = "principal_id"
	FieldAccessToken = "access_token"
	FieldTokenType   = "token_type"
	FieldExpiresIn   = "expires_in"
	FieldMessage     = "message"
)
