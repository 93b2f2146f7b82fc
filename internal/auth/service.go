package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Service wraps a Provider with input validation, user-facing error
// messages, and auth-state change notifications. Unlike the AI path,
// auth errors propagate to the caller.
type Service struct {
	provider Provider
	logger   *log.Logger

	mu        sync.RWMutex
	current   *UserRecord
	listeners map[int]func(*UserRecord)
	nextID    int
}

// NewService creates a Service over the given provider.
func NewService(provider Provider, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		provider:  provider,
		logger:    logger,
		listeners: make(map[int]func(*UserRecord)),
	}
}

// SignUp validates the input, creates the account, and signs the new
// user in.
func (s *Service) SignUp(ctx context.Context, displayName, email, password string) (*UserRecord, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errors.New("Please enter your name.")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, errors.New("Please enter a password.")
	}

	user, err := s.provider.SignUp(ctx, email, password, displayName)
	if err != nil {
		s.logger.Warn("sign-up failed", "email", normalizeEmail(email), "error", err)
		return nil, translateError(err)
	}
	s.setCurrent(user)
	return user, nil
}

// SignIn validates the input and authenticates the user.
func (s *Service) SignIn(ctx context.Context, email, password string) (*UserRecord, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, errors.New("Please enter a password.")
	}

	user, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.logger.Warn("sign-in failed", "email", normalizeEmail(email), "error", err)
		return nil, translateError(err)
	}
	s.setCurrent(user)
	return user, nil
}

// SignOut clears the current user and notifies listeners.
func (s *Service) SignOut() {
	s.setCurrent(nil)
}

// ResetPassword initiates a password reset.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := s.provider.ResetPassword(ctx, email); err != nil {
		return translateError(err)
	}
	return nil
}

// UpdateProfile updates the signed-in user's profile fields.
func (s *Service) UpdateProfile(ctx context.Context, displayName, photoURL string) (*UserRecord, error) {
	current := s.CurrentUser()
	if current == nil {
		return nil, errors.New("You must be signed in to update your profile.")
	}

	user, err := s.provider.UpdateProfile(ctx, current.UID, displayName, photoURL)
	if err != nil {
		return nil, translateError(err)
	}
	s.setCurrent(user)
	return user, nil
}

// CurrentUser returns the signed-in user, or nil.
func (s *Service) CurrentUser() *UserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	user := *s.current
	return &user
}

// IsAuthenticated reports whether a user is signed in.
func (s *Service) IsAuthenticated() bool {
	return s.CurrentUser() != nil
}

// OnAuthStateChanged registers a listener invoked with the new user on
// sign-in, profile update, and sign-out (nil). The returned function
// unsubscribes the listener.
func (s *Service) OnAuthStateChanged(fn func(*UserRecord)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Restore seeds the current user from a persisted session without
// notifying listeners.
func (s *Service) Restore(user *UserRecord) {
	s.mu.Lock()
	s.current = user
	s.mu.Unlock()
}

func (s *Service) setCurrent(user *UserRecord) {
	s.mu.Lock()
	s.current = user
	fns := make([]func(*UserRecord), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("Please enter your email address.")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return errors.New("Please enter a valid email address.")
	}
	return nil
}

// translateError maps provider sentinels to messages suitable for
// direct display.
func translateError(err error) error {
	switch {
	case errors.Is(err, ErrEmailInUse):
		return errors.New("An account with this email already exists.")
	case errors.Is(err, ErrUserNotFound):
		return errors.New("No account found with this email.")
	case errors.Is(err, ErrInvalidCredentials):
		return errors.New("Incorrect email or password.")
	case errors.Is(err, ErrWeakPassword):
		return errors.New("Password must be at least 6 characters.")
	}
	return errors.New("Something went wrong. Please try again.")
}
