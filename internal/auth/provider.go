package auth

import (
	"context"
	"errors"
)

// UserRecord is the authenticated identity exposed to the rest of the
// app.
type UserRecord struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// Sentinel errors returned by providers. The Service translates these
// into user-facing messages.
var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password too weak")
)

// Provider is a pluggable credential backend.
type Provider interface {
	// SignUp creates an account and returns the new user.
	SignUp(ctx context.Context, email, password, displayName string) (*UserRecord, error)

	// SignIn verifies credentials and returns the user.
	SignIn(ctx context.Context, email, password string) (*UserRecord, error)

	// ResetPassword initiates a password reset for the account.
	ResetPassword(ctx context.Context, email string) error

	// UpdateProfile changes the display name and/or photo URL of an
	// existing account. Empty fields are left unchanged.
	UpdateProfile(ctx context.Context, uid, displayName, photoURL string) (*UserRecord, error)
}
