// Copyright (c) 2026 Imma Platform. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/immahq/imma/internal/platform/apperr"
	"github.com/immahq/imma/internal/platform/ctxutil"
	"github.com/immahq/imma/internal/platform/mail"
	"github.com/immahq/imma/internal/platform/objstore"
	"github.com/immahq/imma/internal/platform/sec"
	"github.com/immahq/imma/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for minting and checking session tokens.
//
// Access and refresh tokens are signed with distinct secrets; a token of one
// family never verifies as the other.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT carrying the principal's
	// identity for API authorization.
	GenerateAccessToken(principalID, email, kind string, timeToLive time.Duration) (string, error)

	// GenerateRefreshToken creates a signed JWT carrying only (email, kind),
	// used exclusively to mint new access tokens.
	GenerateRefreshToken(email, kind string, timeToLive time.Duration) (string, error)

	// VerifyRefreshToken checks the signature and expiry of a refresh token.
	VerifyRefreshToken(tokenString string) (*sec.RefreshClaims, error)
}

// Service implements the credential and session use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// issuance, or the verification/recovery flows must be reviewed carefully.
type Service struct {
	principalRepository PrincipalRepository
	tokenRepository     TokenRepository
	tokenProvider       TokenProvider
	mailSender          mail.Sender
	documentStore       objstore.Storer
	frontendURL         string
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	principalRepo PrincipalRepository,
	tokenRepo TokenRepository,
	tokenProv TokenProvider,
	mailSender mail.Sender,
	documentStore objstore.Storer,
	frontendURL string,
) *Service {
	return &Service{
		principalRepository: principalRepo,
		tokenRepository:     tokenRepo,
		tokenProvider:       tokenProv,
		mailSender:          mailSender,
		documentStore:       documentStore,
		frontendURL:         frontendURL,
	}
}

// # Registration Flow

// RegisterStudentInput holds the data required to enroll a new student.
type RegisterStudentInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	BirthDate   string
	Nationality string
	Phone       string
}

// DocumentUpload is an in-memory file received from a multipart form.
type DocumentUpload struct {
	Filename    string
	ContentType string
	Blob        []byte
}

// RegisterUniversityInput holds the data required to enroll a new university,
// including its supporting documents.
type RegisterUniversityInput struct {
	Email      string
	Password   string
	Name       string
	Province   string
	PostalCode string
	Phone      string
	Documents  []DocumentUpload
}

/*
RegisterStudent validates, hashes, and persists a brand new student account.

Description: The account starts unverified; a verification link is issued and
delivered as a side effect. Delivery failures are logged but do not fail the
registration, so the caller-visible outcome never leaks mailer state.

Parameters:
  - context: context.Context
  - input: RegisterStudentInput

Returns:
  - *Principal: Created entity
  - error: apperr.Conflict (if the email is taken for students) or storage errors
*/
func (service *Service) RegisterStudent(context context.Context, input RegisterStudentInput) (*Principal, error) {
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Time-sortable ID to prevent PG index fragmentation.
	principal := &Principal{
		ID:           uuid.New(),
		Kind:         sec.KindStudent,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Verified:     false,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		BirthDate:    input.BirthDate,
		Nationality:  input.Nationality,
		Phone:        input.Phone,
	}

	if err := service.principalRepository.Create(context, principal); err != nil {
		return nil, err
	}

	service.beginVerification(context, principal)

	return principal, nil
}

/*
RegisterUniversity validates, hashes, and persists a brand new university
account along with its uploaded supporting documents.

Description: Documents are stored in object storage first; only the returned
URLs are persisted with the account. Like student registration, the account
starts unverified and a verification link is delivered.

Parameters:
  - context: context.Context
  - input: RegisterUniversityInput

Returns:
  - *Principal: Created entity
  - error: apperr.Conflict (if the email is taken for universities), upload
    failures, or storage errors
*/
func (service *Service) RegisterUniversity(context context.Context, input RegisterUniversityInput) (*Principal, error) {
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	documentURLs := make([]string, 0, len(input.Documents))
	for _, document := range input.Documents {
		url, err := service.documentStore.Store(context, document.Filename, document.ContentType, document.Blob)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("auth_service_document_upload_failed: %w", err))
		}
		documentURLs = append(documentURLs, url)
	}

	principal := &Principal{
		ID:           uuid.New(),
		Kind:         sec.KindUniversity,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Verified:     false,
		Name:         input.Name,
		Province:     input.Province,
		PostalCode:   input.PostalCode,
		Phone:        input.Phone,
		Documents:    documentURLs,
	}

	if err := service.principalRepository.Create(context, principal); err != nil {
		return nil, err
	}

	service.beginVerification(context, principal)

	return principal, nil
}

// beginVerification performs the get-or-create of the verification token and
// delivers the link when a new token was created. When a live token already
// exists nothing is re-sent, so repeated registrations or login attempts
// produce at most one live token and one delivery.
func (service *Service) beginVerification(context context.Context, principal *Principal) {
	logger := ctxutil.GetLogger(context)

	secret, created, err := service.tokenRepository.Issue(context, PurposeVerification, principal.ID, VerificationTokenTTL)
	if err != nil {
		logger.ErrorContext(context, "verification_token_issue_failed",
			slog.String("principal_id", principal.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if !created {
		return
	}

	link := service.verificationLink(principal, secret)
	if err := service.mailSender.Deliver(context, principal.Email, "Verify your Imma account", link); err != nil {
		logger.ErrorContext(context, "verification_mail_delivery_failed",
			slog.String("principal_id", principal.ID),
			slog.String("error", err.Error()),
		)
	}
}

// verificationLink builds the frontend URL embedded in the verification email.
func (service *Service) verificationLink(principal *Principal, secret string) string {
	return fmt.Sprintf("%s/auth/%s/verify/%s?kind=%s", service.frontendURL, principal.ID, secret, principal.Kind)
}

// recoveryLink builds the frontend URL embedded in the password reset email.
func (service *Service) recoveryLink(kind sec.PrincipalKind, secret string) string {
	return fmt.Sprintf("%s/auth/reset-password/%s?kind=%s", service.frontendURL, secret, kind)
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
	Kind     sec.PrincipalKind
}

// LoginSession represents a successfully established session.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Principal             *Principal
}

/*
Login validates credentials and issues the access/refresh token pair.

Description: Resolves the principal by (kind, email), performs constant-time
password comparison, and refuses unverified accounts with a pending
verification signal instead of a session.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session tokens
  - error: apperr.NotFound (unknown email for kind), apperr.Unauthorized
    (wrong password), apperr.PendingVerification (unverified account), or
    internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	principal, err := service.principalRepository.FindByEmail(context, input.Kind, input.Email)
	if err != nil {
		return nil, err
	}

	// bcrypt compares in constant time to prevent timing attacks.
	if !sec.CheckPasswordHash(input.Password, principal.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Correct credentials on an unverified account restart the verification
	// flow instead of opening a session.
	if !principal.Verified {
		service.beginVerification(context, principal)
		return nil, apperr.PendingVerification()
	}

	accessToken, err := service.tokenProvider.GenerateAccessToken(principal.ID, principal.Email, string(principal.Kind), AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokenProvider.GenerateRefreshToken(principal.Email, string(principal.Kind), RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: time.Now().Add(RefreshTokenTTL),
		Principal:             principal,
	}, nil
}

/*
Refresh mints a new access token from a valid refresh token.

Description: The refresh token carries only (email, kind); the principal is
re-resolved on every call, so a deleted account is locked out immediately
instead of surviving until access-token expiry. No new refresh token is
issued; the existing cookie keeps its original expiry.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - string: A fresh access token
  - error: apperr.Forbidden (missing, tampered, or expired refresh token) or
    apperr.NotFound (principal gone)
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (string, error) {
	claims, err := service.tokenProvider.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", apperr.Forbidden("Invalid or expired refresh token")
	}

	kind, ok := sec.ParseKind(claims.Kind)
	if !ok {
		return "", apperr.Forbidden("Invalid or expired refresh token")
	}

	principal, err := service.principalRepository.FindByEmail(context, kind, claims.Email)
	if err != nil {
		return "", err
	}

	accessToken, err := service.tokenProvider.GenerateAccessToken(principal.ID, principal.Email, string(principal.Kind), AccessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	return accessToken, nil
}

// # Verification Flow

/*
VerifyEmail confirms email ownership using the link parameters.

Description: All failure shapes (unknown principal, wrong kind, absent or
expired or mismatched secret) collapse into apperr.InvalidLink so the
response leaks nothing about token state. The verified flag is committed
BEFORE the token is consumed; a consume failure is logged only, and the
already-spent secret simply stops resolving at its TTL.

Parameters:
  - context: context.Context
  - kind: sec.PrincipalKind
  - principalID: string
  - secret: string

Returns:
  - error: apperr.InvalidLink or storage failures
*/
func (service *Service) VerifyEmail(context context.Context, kind sec.PrincipalKind, principalID, secret string) error {
	principal, err := service.principalRepository.FindByID(context, principalID)
	if err != nil || principal.Kind != kind {
		return apperr.InvalidLink()
	}

	if err := service.tokenRepository.FindByPrincipalAndSecret(context, PurposeVerification, principalID, secret); err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		return apperr.Internal(err)
	}

	if err := service.principalRepository.MarkVerified(context, principalID); err != nil {
		return fmt.Errorf("auth_service_mark_verified_failed: %w", err)
	}

	if err := service.tokenRepository.Consume(context, PurposeVerification, principalID, secret); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "verification_token_consume_failed",
			slog.String("principal_id", principalID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Any previously issued recovery link for the principal stops
resolving the moment a new one is issued; only the newest link works. The
reset link is delivered by email; a delivery failure is logged, and the
caller still sees success.

Parameters:
  - context: context.Context
  - kind: sec.PrincipalKind
  - email: string

Returns:
  - error: apperr.NotFound (unknown email for kind) or storage failures
*/
func (service *Service) RequestPasswordReset(context context.Context, kind sec.PrincipalKind, email string) error {
	principal, err := service.principalRepository.FindByEmail(context, kind, email)
	if err != nil {
		return err
	}

	if err := service.tokenRepository.InvalidateForPrincipal(context, PurposeRecovery, principal.ID); err != nil {
		return fmt.Errorf("auth_service_recovery_invalidate_failed: %w", err)
	}

	secret, _, err := service.tokenRepository.Issue(context, PurposeRecovery, principal.ID, RecoveryTokenTTL)
	if err != nil {
		return fmt.Errorf("auth_service_recovery_issue_failed: %w", err)
	}

	link := service.recoveryLink(kind, secret)
	if err := service.mailSender.Deliver(context, principal.Email, "Reset your Imma password", link); err != nil {
		ctxutil.GetLogger(context).ErrorContext(context, "recovery_mail_delivery_failed",
			slog.String("principal_id", principal.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Resolves the secret, hashes the new password, commits it, and
only then consumes the token. A consume failure after the password change is
logged, never surfaced; the reset has already succeeded.

Parameters:
  - context: context.Context
  - kind: sec.PrincipalKind
  - secret: string
  - newPassword: string

Returns:
  - error: apperr.InvalidLink or update failures
*/
func (service *Service) ResetPassword(context context.Context, kind sec.PrincipalKind, secret, newPassword string) error {
	principalID, err := service.tokenRepository.FindBySecret(context, PurposeRecovery, secret)
	if err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		return apperr.Internal(err)
	}

	// A recovery secret issued for one kind must not reset the other kind's
	// account sharing the same email.
	principal, err := service.principalRepository.FindByID(context, principalID)
	if err != nil || principal.Kind != kind {
		return apperr.InvalidLink()
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_hash_failed: %w", err)
	}

	if err := service.principalRepository.UpdatePassword(context, principalID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_update_failed: %w", err)
	}

	if err := service.tokenRepository.Consume(context, PurposeRecovery, principalID, secret); err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "recovery_token_consume_failed",
			slog.String("principal_id", principalID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
