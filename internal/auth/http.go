// Copyright (c) 2026 Imma Platform. All rights reserved.

package auth

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/immahq/imma/internal/platform/apperr"
	"github.com/immahq/imma/internal/platform/constants"
	requestutil "github.com/immahq/imma/internal/platform/request"
	"github.com/immahq/imma/internal/platform/respond"
	"github.com/immahq/imma/internal/platform/sec"
	"github.com/immahq/imma/internal/platform/validate"
)

// maxRegistrationFormSize bounds the multipart body of a university
// registration (metadata plus supporting documents).
const maxRegistrationFormSize = 32 << 20 // 32 MiB

// # Definitions & Constructors

// Handler implements the authentication HTTP endpoints.
//
// # Scope
//
// This handler manages the account lifecycle entry points (registration,
// login, verification, recovery) plus the refresh-cookie plumbing. It is
// strictly a transport layer; all rules live in [Service].
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with the authentication routes.
//
// # Endpoints
//   - POST /login                           : Authenticates and returns a JWT pair.
//   - POST /refresh                         : Mints a new access token from the cookie.
//   - POST /logout                          : Clears the refresh cookie.
//   - POST /register/student                : Creates a student account.
//   - POST /register/university             : Creates a university account (multipart).
//   - POST /{principalID}/verify/{token}    : Confirms email ownership.
//   - POST /forgot-password                 : Starts password recovery.
//   - POST /reset-password/{token}          : Completes password recovery.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/register/student", handler.registerStudent)
	router.Post("/register/university", handler.registerUniversity)
	router.Post("/{principalID}/verify/{token}", handler.verifyEmail)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password/{token}", handler.resetPassword)

	return router
}

// # Request Payloads

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Kind     string `json:"kind"`
}

type registerStudentRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	BirthDate   string `json:"birth_date"`
	Nationality string `json:"nationality"`
	Phone       string `json:"phone"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
	Kind  string `json:"kind"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
	Kind     string `json:"kind"`
}

/*
Login authenticates a principal and establishes a session.

POST /api/v1/auth/login

Description: Verifies credentials for the given kind, returns the access
token in the body, and injects the refresh token as a scoped secure cookie.

Request:
  - Body: loginRequest (Email, Password, Kind)

Response:
  - 200: Session: Access token and principal profile
  - 400: PendingVerification: Credentials correct but email not verified
  - 401: ErrUnauthorized: Wrong password
  - 404: ErrNotFound: No account with this email for this kind
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		OneOf(FieldKind, input.Kind, string(sec.KindStudent), string(sec.KindUniversity))

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	kind, _ := sec.ParseKind(input.Kind)
	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
		Kind:     kind,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setRefreshCookie(writer, session.RefreshToken, session.RefreshTokenExpiresAt)

	respond.OK(writer, map[string]any{
		FieldAccessToken: session.AccessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int64(AccessTokenTTL / time.Second),
		"principal":      session.Principal,
	})
}

/*
Refresh issues a new access token using the refresh token cookie.

POST /api/v1/auth/refresh

Description: Validates the refresh cookie and mints a fresh access token.
The refresh cookie itself is not rotated and keeps its original expiry.

Response:
  - 200: RefreshResponse: New access token credentials
  - 403: ErrForbidden: Missing, tampered, or expired refresh token
  - 404: ErrNotFound: Account no longer exists
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.Forbidden("Missing refresh token in cookies"))
		return
	}

	accessToken, err := handler.authService.Refresh(request.Context(), cookie.Value)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldAccessToken: accessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int64(AccessTokenTTL / time.Second),
	})
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Description: Clears the refresh cookie. Idempotent: logging out without an
active session is still a success.

Response:
  - 204: No Content: Cookie cleared
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	clearRefreshCookie(writer)
	respond.NoContent(writer)
}

/*
RegisterStudent handles the creation of a new student account.

POST /api/v1/auth/register/student

Description: Validates input, persists the unverified account, and triggers
the verification email.

Request:
  - Body: registerStudentRequest

Response:
  - 201: Principal: Created profile plus a pending-verification message
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already registered as a student
*/
func (handler *Handler) registerStudent(writer http.ResponseWriter, request *http.Request) {
	var input registerStudentRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, 100).
		Required(FieldLastName, input.LastName).
		MaxLen(FieldLastName, input.LastName, 100).
		Required(FieldBirthDate, input.BirthDate).
		Date(FieldBirthDate, input.BirthDate).
		Required(FieldNationality, input.Nationality).
		Required(FieldPhone, input.Phone)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	principal, err := handler.authService.RegisterStudent(request.Context(), RegisterStudentInput{
		Email:       input.Email,
		Password:    input.Password,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		BirthDate:   input.BirthDate,
		Nationality: input.Nationality,
		Phone:       input.Phone,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		"principal":  principal,
		FieldMessage: "Email sent to your account, please verify",
	})
}

/*
RegisterUniversity handles the creation of a new university account.

POST /api/v1/auth/register/university

Description: Accepts a multipart form carrying the account fields plus one or
more supporting documents under the "documents" file field. Documents are
uploaded to object storage before the account is persisted.

Request:
  - Multipart: name, email, password, province, postal_code, phone, documents[]

Response:
  - 201: Principal: Created profile plus a pending-verification message
  - 400: ErrInvalidJSON: Bad form or validation failure
  - 409: ErrConflict: Email already registered as a university
*/
func (handler *Handler) registerUniversity(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseMultipartForm(maxRegistrationFormSize); err != nil {
		respond.Error(writer, request, apperr.ValidationError("Invalid multipart form"))
		return
	}

	input := RegisterUniversityInput{
		Email:      request.FormValue(FieldEmail),
		Password:   request.FormValue(FieldPassword),
		Name:       request.FormValue(FieldName),
		Province:   request.FormValue(FieldProvince),
		PostalCode: request.FormValue(FieldPostalCode),
		Phone:      request.FormValue(FieldPhone),
	}

	fileHeaders := request.MultipartForm.File[FieldDocuments]

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, 200).
		Required(FieldProvince, input.Province).
		Required(FieldPostalCode, input.PostalCode).
		Required(FieldPhone, input.Phone).
		Custom(FieldDocuments, len(fileHeaders) == 0, "At least one supporting document is required")

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	for _, fileHeader := range fileHeaders {
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(writer, request, apperr.ValidationError("Unreadable document upload"))
			return
		}

		blob, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			respond.Error(writer, request, apperr.ValidationError("Unreadable document upload"))
			return
		}

		input.Documents = append(input.Documents, DocumentUpload{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Blob:        blob,
		})
	}

	principal, err := handler.authService.RegisterUniversity(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		"principal":  principal,
		FieldMessage: "Email sent to your account, please verify",
	})
}

/*
VerifyEmail confirms a principal's email ownership.

POST /api/v1/auth/{principalID}/verify/{token}?kind=

Description: Validates the link parameters and marks the account as verified.
Every failure shape collapses into a single invalid-link error.

Response:
  - 200: Success: Email verified
  - 400: InvalidLink: Unknown principal, wrong kind, or dead token
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	principalID := requestutil.Param(request, "principalID")
	secret := requestutil.Param(request, "token")

	kind, ok := sec.ParseKind(request.URL.Query().Get(FieldKind))
	if !ok {
		respond.Error(writer, request, apperr.InvalidLink())
		return
	}

	validator := &validate.Validator{}
	validator.UUID(FieldPrincipalID, principalID).Required(FieldToken, secret)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, apperr.InvalidLink())
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), kind, principalID, secret); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Email verified successfully",
	})
}

/*
ForgotPassword initiates the password recovery flow.

POST /api/v1/auth/forgot-password

Description: Issues a fresh recovery link (replacing any earlier one) and
delivers it by email.

Request:
  - Body: forgotPasswordRequest (Email, Kind)

Response:
  - 200: Success: Reset link sent
  - 404: ErrNotFound: No account with this email for this kind
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		OneOf(FieldKind, input.Kind, string(sec.KindStudent), string(sec.KindUniversity))

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	kind, _ := sec.ParseKind(input.Kind)
	if err := handler.authService.RequestPasswordReset(request.Context(), kind, input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "A reset link has been sent to your email",
	})
}

/*
ResetPassword completes the password recovery flow.

POST /api/v1/auth/reset-password/{token}

Description: Validates the recovery token and updates the password. The spent
token stops resolving immediately after.

Request:
  - Body: resetPasswordRequest (Password, Kind)

Response:
  - 200: Success: Password updated
  - 400: InvalidLink: Dead token, or weak password (validation failure)
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	secret := requestutil.Param(request, "token")

	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, secret).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		OneOf(FieldKind, input.Kind, string(sec.KindStudent), string(sec.KindUniversity))

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	kind, _ := sec.ParseKind(input.Kind)
	if err := handler.authService.ResetPassword(request.Context(), kind, secret, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password updated successfully",
	})
}

// # Cookie Plumbing

// setRefreshCookie injects the refresh token as a path-scoped secure cookie.
func setRefreshCookie(writer http.ResponseWriter, refreshToken string, expiresAt time.Time) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    refreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  expiresAt,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie expires the refresh cookie on the client.
func clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
