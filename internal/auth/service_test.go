package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("sign up and sign in", func(t *testing.T) {
		p := NewLocalProvider()
		created, err := p.SignUp(ctx, "Alex@Example.com", "secret1", "Alex")
		require.NoError(t, err)
		assert.Equal(t, "alex@example.com", created.Email)
		assert.Equal(t, "Alex", created.DisplayName)
		assert.NotEmpty(t, created.UID)

		user, err := p.SignIn(ctx, "alex@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, created.UID, user.UID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		p := NewLocalProvider()
		_, err := p.SignUp(ctx, "dup@example.com", "secret1", "One")
		require.NoError(t, err)
		_, err = p.SignUp(ctx, "DUP@example.com", "secret2", "Two")
		assert.ErrorIs(t, err, ErrEmailInUse)
	})

	t.Run("wrong password", func(t *testing.T) {
		p := NewLocalProvider()
		_, err := p.SignUp(ctx, "a@example.com", "secret1", "A")
		require.NoError(t, err)
		_, err = p.SignIn(ctx, "a@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		p := NewLocalProvider()
		_, err := p.SignIn(ctx, "nobody@example.com", "secret1")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("short password", func(t *testing.T) {
		p := NewLocalProvider()
		_, err := p.SignUp(ctx, "a@example.com", "tiny", "A")
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("update profile", func(t *testing.T) {
		p := NewLocalProvider()
		created, err := p.SignUp(ctx, "a@example.com", "secret1", "Old Name")
		require.NoError(t, err)

		updated, err := p.UpdateProfile(ctx, created.UID, "New Name", "")
		require.NoError(t, err)
		assert.Equal(t, "New Name", updated.DisplayName)

		_, err = p.UpdateProfile(ctx, "missing", "X", "")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewLocalProvider(), nil)

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"empty name", func() error {
			_, err := svc.SignUp(ctx, "", "a@example.com", "secret1")
			return err
		}, "Please enter your name."},
		{"empty email", func() error {
			_, err := svc.SignIn(ctx, "", "secret1")
			return err
		}, "Please enter your email address."},
		{"malformed email", func() error {
			_, err := svc.SignIn(ctx, "not-an-email", "secret1")
			return err
		}, "Please enter a valid email address."},
		{"empty password", func() error {
			_, err := svc.SignIn(ctx, "a@example.com", "")
			return err
		}, "Please enter a password."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestServiceErrorTranslation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewLocalProvider(), nil)

	_, err := svc.SignUp(ctx, "Alex", "alex@example.com", "secret1")
	require.NoError(t, err)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.SignUp(ctx, "Other", "alex@example.com", "secret2")
		require.Error(t, err)
		assert.Equal(t, "An account with this email already exists.", err.Error())
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "nobody@example.com", "secret1")
		require.Error(t, err)
		assert.Equal(t, "No account found with this email.", err.Error())
	})

	t.Run("bad password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, "alex@example.com", "wrong")
		require.Error(t, err)
		assert.Equal(t, "Incorrect email or password.", err.Error())
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := svc.SignUp(ctx, "New", "new@example.com", "tiny")
		require.Error(t, err)
		assert.Equal(t, "Password must be at least 6 characters.", err.Error())
	})
}

func TestServiceSession(t *testing.T) {
	ctx := context.Background()

	t.Run("current user tracks sign in and out", func(t *testing.T) {
		svc := NewService(NewLocalProvider(), nil)
		assert.Nil(t, svc.CurrentUser())
		assert.False(t, svc.IsAuthenticated())

		user, err := svc.SignUp(ctx, "Alex", "alex@example.com", "secret1")
		require.NoError(t, err)
		require.NotNil(t, svc.CurrentUser())
		assert.Equal(t, user.UID, svc.CurrentUser().UID)

		svc.SignOut()
		assert.Nil(t, svc.CurrentUser())
	})

	t.Run("listeners fire and unsubscribe works", func(t *testing.T) {
		svc := NewService(NewLocalProvider(), nil)

		var events []*UserRecord
		unsubscribe := svc.OnAuthStateChanged(func(u *UserRecord) {
			events = append(events, u)
		})

		_, err := svc.SignUp(ctx, "Alex", "alex@example.com", "secret1")
		require.NoError(t, err)
		svc.SignOut()

		require.Len(t, events, 2)
		assert.NotNil(t, events[0])
		assert.Nil(t, events[1])

		unsubscribe()
		_, err = svc.SignIn(ctx, "alex@example.com", "secret1")
		require.NoError(t, err)
		assert.Len(t, events, 2, "listener fired after unsubscribe")
	})

	t.Run("restore does not notify", func(t *testing.T) {
		svc := NewService(NewLocalProvider(), nil)
		var calls int
		svc.OnAuthStateChanged(func(*UserRecord) { calls++ })

		svc.Restore(&UserRecord{UID: "u1", Email: "a@example.com"})
		assert.Zero(t, calls)
		require.NotNil(t, svc.CurrentUser())
		assert.Equal(t, "u1", svc.CurrentUser().UID)
	})
}
