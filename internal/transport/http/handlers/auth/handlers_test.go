package authhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycalc/internal/domain/auth"
	"paycalc/internal/transport/http/middleware"
)

const testSecret = "handler-test-secret"

type memoryUsers struct {
	users map[string]auth.User
}

func (m *memoryUsers) FindActiveUserByEmail(_ context.Context, email string) (auth.User, error) {
	user, ok := m.users[strings.ToLower(email)]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

func (m *memoryUsers) UpdateLastLogin(context.Context, string) error {
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newRouter(t *testing.T, store auth.StoreAPI) http.Handler {
	t.Helper()
	svc := auth.NewService(store, testSecret, nil)
	r := chi.NewRouter()
	r.Use(middleware.Auth(testSecret))
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func seededUsers(t *testing.T) *memoryUsers {
	t.Helper()
	hash, err := auth.HashPassword("Correct-Horse-1")
	require.NoError(t, err)
	return &memoryUsers{users: map[string]auth.User{
		"payroll@example.com": {ID: "u-1", Email: "payroll@example.com", Role: auth.RolePayroll, PasswordHash: hash},
	}}
}

func postLogin(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestLoginIssuesToken(t *testing.T) {
	h := newRouter(t, seededUsers(t))

	rec, env := postLogin(t, h, `{"email":"Payroll@Example.com","password":"Correct-Horse-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var result auth.LoginResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "u-1", result.UserID)
	assert.Equal(t, auth.RolePayroll, result.Role)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultTokenTTL), result.ExpiresAt, time.Minute)

	claims, err := auth.ParseToken(testSecret, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "payroll@example.com", claims.Email)
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		store    auth.StoreAPI
		body     string
		wantCode int
		wantErr  string
	}{
		{name: "wrong password", store: seededUsers(t), body: `{"email":"payroll@example.com","password":"nope"}`, wantCode: http.StatusUnauthorized, wantErr: "invalid_credentials"},
		{name: "unknown user", store: seededUsers(t), body: `{"email":"ghost@example.com","password":"x"}`, wantCode: http.StatusUnauthorized, wantErr: "invalid_credentials"},
		{name: "missing fields", store: seededUsers(t), body: `{"email":""}`, wantCode: http.StatusBadRequest, wantErr: "validation_error"},
		{name: "malformed json", store: seededUsers(t), body: `{"email":`, wantCode: http.StatusBadRequest, wantErr: "invalid_payload"},
		{name: "no user store", store: nil, body: `{"email":"a@example.com","password":"x"}`, wantCode: http.StatusServiceUnavailable, wantErr: "login_unavailable"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := postLogin(t, newRouter(t, tc.store), tc.body)
			assert.Equal(t, tc.wantCode, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.wantErr, env.Error.Code)
		})
	}
}

func TestMeRequiresToken(t *testing.T) {
	h := newRouter(t, seededUsers(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u-1", Email: "payroll@example.com", Role: auth.RoleViewer}, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var me meResponse
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, auth.RoleViewer, me.Role)
	assert.ElementsMatch(t, auth.RolePermissions[auth.RoleViewer], me.Permissions)
}
