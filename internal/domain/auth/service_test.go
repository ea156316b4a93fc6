package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	users     map[string]User
	lastLogin []string
}

func (f *fakeUserStore) FindActiveUserByEmail(_ context.Context, email string) (User, error) {
	user, ok := f.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) UpdateLastLogin(_ context.Context, userID string) error {
	f.lastLogin = append(f.lastLogin, userID)
	return nil
}

func TestServiceLogin(t *testing.T) {
	hash, err := HashPassword("Payroll123")
	require.NoError(t, err)
	store := &fakeUserStore{users: map[string]User{
		"payroll@example.com": {ID: "u1", Email: "payroll@example.com", Role: RolePayroll, PasswordHash: hash},
	}}
	svc := NewService(store, "test-secret", nil)

	result, err := svc.Login(context.Background(), " payroll@example.com ", "Payroll123")
	require.NoError(t, err)
	assert.Equal(t, "u1", result.UserID)
	assert.Equal(t, RolePayroll, result.Role)
	assert.Equal(t, []string{"u1"}, store.lastLogin)

	claims, err := ParseToken("test-secret", result.Token)
	require.NoError(t, err)
	assert.Equal(t, RolePayroll, claims.Role)

	_, err = svc.Login(context.Background(), "payroll@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.com", "Payroll123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestServiceLoginWithoutStore(t *testing.T) {
	svc := NewService(nil, "test-secret", nil)

	_, err := svc.Login(context.Background(), "a@example.com", "x")
	assert.ErrorIs(t, err, ErrLoginUnavailable)
}
