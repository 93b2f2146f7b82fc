package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

type localUser struct {
	record       UserRecord
	passwordHash []byte
}

// LocalProvider keeps accounts in memory with bcrypt password hashes.
// It backs the app when no external identity provider is configured.
type LocalProvider struct {
	mu    sync.RWMutex
	users map[string]*localUser // keyed by normalized email
}

// NewLocalProvider creates an empty local account store.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{users: make(map[string]*localUser)}
}

// SignUp implements Provider.
func (p *LocalProvider) SignUp(_ context.Context, email, password, displayName string) (*UserRecord, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	key := normalizeEmail(email)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.users[key]; exists {
		return nil, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &localUser{
		record: UserRecord{
			UID:         uuid.NewString(),
			Email:       key,
			DisplayName: displayName,
		},
		passwordHash: hash,
	}
	p.users[key] = user

	record := user.record
	return &record, nil
}

// SignIn implements Provider.
func (p *LocalProvider) SignIn(_ context.Context, email, password string) (*UserRecord, error) {
	p.mu.RLock()
	user, ok := p.users[normalizeEmail(email)]
	p.mu.RUnlock()

	if !ok {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	record := user.record
	return &record, nil
}

// ResetPassword implements Provider. For the local backend it only
// verifies the account exists; there is no email channel to send a
// reset link through.
func (p *LocalProvider) ResetPassword(_ context.Context, email string) error {
	p.mu.RLock()
	_, ok := p.users[normalizeEmail(email)]
	p.mu.RUnlock()

	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// UpdateProfile implements Provider.
func (p *LocalProvider) UpdateProfile(_ context.Context, uid, displayName, photoURL string) (*UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, user := range p.users {
		if user.record.UID != uid {
			continue
		}
		if displayName != "" {
			user.record.DisplayName = displayName
		}
		if photoURL != "" {
			user.record.PhotoURL = photoURL
		}
		record := user.record
		return &record, nil
	}
	return nil, ErrUserNotFound
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
