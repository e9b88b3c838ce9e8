// Copyright (c) 2026 Imma Platform. All rights reserved.

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immahq/imma/internal/auth"
	"github.com/immahq/imma/internal/platform/constants"
	"github.com/immahq/imma/internal/platform/sec"
)

func newTestRouter(fixture *serviceFixture) *chi.Mux {
	router := chi.NewRouter()
	router.Mount("/api/v1/auth", auth.NewHandler(fixture.service).Routes())
	return router
}

func performJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

/*
TestHTTP_Login verifies the success envelope carries the access token and
the refresh token travels only in the scoped cookie.
*/
func TestHTTP_Login(t *testing.T) {
	fixture := newServiceFixture(t)
	router := newTestRouter(fixture)

	principal := fixture.registerStudent(t, "ada@example.com", "correct-horse")
	secret := fixture.tokens.secretFor(auth.PurposeVerification, principal.ID)
	require.NoError(t, fixture.service.VerifyEmail(context.Background(), sec.KindStudent, principal.ID, secret))

	recorder := performJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ada@example.com","password":"correct-horse","kind":"student"}`)

	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)

	// The refresh token rides in an HttpOnly cookie scoped to the auth path.
	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, constants.RefreshTokenCookieName, cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, constants.RefreshTokenCookiePath, cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.NotContains(t, recorder.Body.String(), cookie.Value)
}

/*
TestHTTP_Login_ErrorStatuses maps the service failures onto HTTP codes.
*/
func TestHTTP_Login_ErrorStatuses(t *testing.T) {
	fixture := newServiceFixture(t)
	router := newTestRouter(fixture)

	fixture.registerStudent(t, "ada@example.com", "correct-horse")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			"unknown_email",
			`{"email":"nobody@example.com","password":"x","kind":"student"}`,
			http.StatusNotFound, "NOT_FOUND",
		},
		{
			"wrong_password",
			`{"email":"ada@example.com","password":"wrong","kind":"student"}`,
			http.StatusUnauthorized, "UNAUTHORIZED",
		},
		{
			"unverified_account",
			`{"email":"ada@example.com","password":"correct-horse","kind":"student"}`,
			http.StatusBadRequest, "PENDING_VERIFICATION",
		},
		{
			"invalid_kind",
			`{"email":"ada@example.com","password":"correct-horse","kind":"admin"}`,
			http.StatusBadRequest, "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := performJSON(t, router, http.MethodPost, "/api/v1/auth/login", tt.body)
			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Contains(t, recorder.Body.String(), tt.wantCode)
		})
	}
}

/*
TestHTTP_Refresh verifies the cookie round-trip and the forbidden paths.
*/
func TestHTTP_Refresh(t *testing.T) {
	fixture := newServiceFixture(t)
	router := newTestRouter(fixture)

	principal := fixture.registerStudent(t, "ada@example.com", "correct-horse")
	secret := fixture.tokens.secretFor(auth.PurposeVerification, principal.ID)
	require.NoError(t, fixture.service.VerifyEmail(context.Background(), sec.KindStudent, principal.ID, secret))

	login := performJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ada@example.com","password":"correct-horse","kind":"student"}`)
	require.Equal(t, http.StatusOK, login.Code)
	refreshCookie := login.Result().Cookies()[0]

	// 1. With the cookie a fresh access token is minted.
	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	request.AddCookie(refreshCookie)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "access_token")

	// 2. Without the cookie the call is forbidden.
	recorder = performJSON(t, router, http.MethodPost, "/api/v1/auth/refresh", "")
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// 3. With a tampered cookie the call is forbidden.
	request = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	request.AddCookie(&http.Cookie{Name: constants.RefreshTokenCookieName, Value: refreshCookie.Value + "x"})
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

/*
TestHTTP_Logout verifies logout is idempotent and clears the cookie.
*/
func TestHTTP_Logout(t *testing.T) {
	fixture := newServiceFixture(t)
	router := newTestRouter(fixture)

	// No session at all: still a 204 with an expired cookie.
	recorder := performJSON(t, router, http.MethodPost, "/api/v1/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, constants.RefreshTokenCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

/*
TestHTTP_VerifyEmail verifies the link endpoint collapses bad parameters
into the invalid-link error.
*/
func TestHTTP_VerifyEmail(t *testing.T) {
	fixture := newServiceFixture(t)
	router := newTestRouter(fixture)

	principal := fixture.registerStudent(t, "ada@example.com", "correct-horse")
	secret := fixture.tokens.secretFor(auth.PurposeVerification, principal.ID)

	// 1. Missing kind query parameter.
	recorder := performJSON(t, router, http.MethodPost, "/api/v1/auth/"+principal.ID+"/verify/"+secret, "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INVALID_LINK")

	// 2. Malformed principal ID.
	recorder = performJSON(t, router, http.MethodPost, "/api/v1/auth/not-a-uuid/verify/"+secret+"?kind=student", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INVALID_LINK")

	// 3. Happy path.
	recorder = performJSON(t, router, http.MethodPost, "/api/v1/auth/"+principal.ID+"/verify/"+secret+"?kind=student", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "verified")
}

/*
TestHTTP_RegisterStudent verifies the 201 pending-verification response and
the duplicate-email conflict.
*/
func TestHTTP_RegisterStudent(t *testing.T) {
	fixture := newServiceFixture(t)
	router := newTestRouter(fixture)

	recorder := performJSON(t, router, http.MethodPost, "/api/v1/auth/register/student",
		`{"email":"ada@example.com","password":"correct-horse","first_name":"Ada","last_name":"Lovelace","birth_date":"2001-06-15","nationality":"UK","phone":"+44 1234"}`)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "please verify")
	// The hash never appears in the payload.
	assert.NotContains(t, recorder.Body.String(), "password")

	// Duplicate registration conflicts.
	recorder = performJSON(t, router, http.MethodPost, "/api/v1/auth/register/student",
		`{"email":"ada@example.com","password":"correct-horse","first_name":"Ada","last_name":"Lovelace","birth_date":"2001-06-15","nationality":"UK","phone":"+44 1234"}`)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}
