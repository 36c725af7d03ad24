package services

import (
	"context"
	"testing"
	"time"

	"github.com/inkpost/apiserver/internal/store"
	"github.com/inkpost/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *store.Badger {
	t.Helper()
	bdb, err := store.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdb.Close() })
	return bdb
}

func newTestAuthService(t *testing.T) (*AuthService, *store.Badger, *TokenService) {
	t.Helper()
	bdb := newTestBadger(t)
	tokens, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	return NewAuthService(bdb.Users(), tokens, nil), bdb, tokens
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Name:            "Ada",
		Email:           "ada@example.com",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
	}
}

func TestRegisterCreatesUser(t *testing.T) {
	ctx := context.Background()
	svc, bdb, _ := newTestAuthService(t)

	user, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.False(t, user.ID.IsZero())
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	stored, err := bdb.Users().GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
	assert.Equal(t, "Ada", stored.Name)
	assert.Empty(t, stored.Token)
}

func TestRegisterRequiresAllFields(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestAuthService(t)

	cases := map[string]func(*RegisterInput){
		"name":            func(in *RegisterInput) { in.Name = "  " },
		"email":           func(in *RegisterInput) { in.Email = "" },
		"password":        func(in *RegisterInput) { in.Password = "" },
		"confirmPassword": func(in *RegisterInput) { in.ConfirmPassword = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validRegistration()
			mutate(&in)
			_, err := svc.Register(ctx, in)
			require.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, "All fields are required")
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, bdb, _ := newTestAuthService(t)

	first, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	again := validRegistration()
	again.Name = "Someone Else"
	_, err = svc.Register(ctx, again)
	require.ErrorIs(t, err, ErrConflict)

	stored, err := bdb.Users().GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "Ada", stored.Name)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	ctx := context.Background()
	svc, bdb, _ := newTestAuthService(t)

	in := validRegistration()
	in.ConfirmPassword = "hunter23"
	_, err := svc.Register(ctx, in)
	require.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "Password and confirm password do not match")

	_, err = bdb.Users().GetByEmail(ctx, in.Email)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, bdb, tokens := newTestAuthService(t)

	user, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "hunter22")
		require.ErrorIs(t, err, ErrNotFound)
		assert.EqualError(t, err, "User not found")
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "ada@example.com", "wrong")
		require.ErrorIs(t, err, ErrUnauthorized)
		assert.EqualError(t, err, "Invalid credentials")
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(ctx, "ada@example.com", "")
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("success", func(t *testing.T) {
		result, err := svc.Login(ctx, "ada@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, user.ID, result.ID)
		assert.Equal(t, "Ada", result.Name)
		assert.Equal(t, "ada@example.com", result.Email)
		require.NotEmpty(t, result.Token)

		identity, err := tokens.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, identity.UserID)
		assert.Equal(t, "ada@example.com", identity.Email)

		stored, err := bdb.Users().GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, result.Token, stored.Token)
	})
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestAuthService(t)

	user, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	got, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)

	_, err = svc.Me(ctx, types.NewUserID())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
