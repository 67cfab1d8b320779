package invoice

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUser is returned when a login email matches no known account.
var ErrUnknownUser = errors.New("unknown user")

// Login resolves an email to a known user and persists it as the current
// session. The configured administrator email always succeeds; an email
// containing "admin" synthesizes an administrator account if none exists;
// anything else unmatched fails with ErrUnknownUser.
func (s *Service) Login(email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrUnknownUser
	}

	if email == s.adminEmail {
		user, err := s.db.GetUserByEmail(email)
		if err != nil {
			user = &User{
				ID:    s.idGenerator.Generate(),
				Email: email,
				Name:  "Administrator",
				Role:  RoleAdmin,
			}
			if saveErr := s.db.SaveUser(user); saveErr != nil {
				return nil, fmt.Errorf("saving administrator account: %w", saveErr)
			}
		}
		return s.startSession(user)
	}

	if user, err := s.db.GetUserByEmail(email); err == nil {
		return s.startSession(user)
	}

	if strings.Contains(email, "admin") {
		user := &User{
			ID:    s.idGenerator.Generate(),
			Email: email,
			Name:  "Administrator",
			Role:  RoleAdmin,
		}
		if err := s.db.SaveUser(user); err != nil {
			return nil, fmt.Errorf("saving administrator account: %w", err)
		}
		return s.startSession(user)
	}

	return nil, ErrUnknownUser
}

// LoginWithGoogle resolves, with a coin flip, to either the fixed
// administrator or a synthetic restricted user. No real external
// authentication occurs.
func (s *Service) LoginWithGoogle() (*User, error) {
	if s.coin.Flip() {
		return s.Login(s.adminEmail)
	}

	email := fmt.Sprintf("gosc-%s@example.com", s.idGenerator.Generate())
	user := &User{
		ID:    s.idGenerator.Generate(),
		Email: email,
		Name:  "Google User",
		Role:  RoleRestricted,
	}
	if err := s.db.SaveUser(user); err != nil {
		return nil, fmt.Errorf("saving google account: %w", err)
	}
	return s.startSession(user)
}

// Logout clears the current session
func (s *Service) Logout() error {
	if err := s.db.ClearSession(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// CurrentUser returns the logged-in user, or nil when nobody is logged in
func (s *Service) CurrentUser() (*User, error) {
	user, err := s.db.GetSession()
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	return user, nil
}

// CreateUser adds a sub-user account. Only administrators may do this; the
// role check lives in the HTTP layer next to the other gates.
func (s *Service) CreateUser(email, name string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if role != RoleAdmin && role != RoleRestricted {
		role = RoleRestricted
	}
	if _, err := s.db.GetUserByEmail(email); err == nil {
		return nil, fmt.Errorf("user already exists: %s", email)
	}

	user := &User{
		ID:    s.idGenerator.Generate(),
		Email: email,
		Name:  name,
		Role:  role,
	}
	if err := s.db.SaveUser(user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return user, nil
}

// ListUsers returns all known accounts
func (s *Service) ListUsers() ([]*User, error) {
	users, err := s.db.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (s *Service) startSession(user *User) (*User, error) {
	if err := s.db.SetSession(user); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}
	return user, nil
}
