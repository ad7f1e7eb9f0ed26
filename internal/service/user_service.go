package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-journal-app/internal/auth"
	"go-journal-app/internal/data"
	"go-journal-app/internal/logger"
)

// UserRepository defines the database operations on accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *data.User) error
	GetUserByID(ctx context.Context, id int64) (*data.User, error)
	GetUserByUsername(ctx context.Context, username string) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
}

// UserServicer defines the account operations used by handlers and commands.
type UserServicer interface {
	Authenticate(ctx context.Context, login, password string) (*data.User, error)
	AuthenticateStaff(ctx context.Context, login, password string) (*data.User, error)
	ByID(ctx context.Context, id int64) (*data.User, error)
	ByVerifiedEmail(ctx context.Context, email string) (*data.User, error)
	CreateSuperuser(ctx context.Context, username, email, password string) (bool, error)
}

// UserService handles sign-in and account creation.
type UserService struct {
	repo UserRepository
	log  logger.Logger
}

var _ UserServicer = (*UserService)(nil)

// NewUserService creates a new UserService.
func NewUserService(repo UserRepository, log logger.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

// Authenticate accepts a username, or an e-mail address when the username
// lookup fails. Inactive accounts are rejected like a wrong password.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*data.User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, login)
	if errors.Is(err, data.ErrNotFound) && strings.Contains(login, "@") {
		user, err = s.repo.GetUserByEmail(ctx, login)
	}
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// AuthenticateStaff is Authenticate restricted to staff accounts.
func (s *UserService) AuthenticateStaff(ctx context.Context, login, password string) (*data.User, error) {
	user, err := s.Authenticate(ctx, login, password)
	if err != nil {
		return nil, err
	}
	if !user.IsStaff {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) ByID(ctx context.Context, id int64) (*data.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ByVerifiedEmail resolves a single sign-on identity to an active local account.
func (s *UserService) ByVerifiedEmail(ctx context.Context, email string) (*data.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user %d: %w", user.ID, ErrForbidden)
	}
	return user, nil
}

// CreateSuperuser creates an active staff account unless the username or
// e-mail is already taken. It reports whether an account was created.
func (s *UserService) CreateSuperuser(ctx context.Context, username, email, password string) (bool, error) {
	if username == "" || email == "" || password == "" {
		return false, errors.New("username, email and password are required")
	}
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		s.log.Warn(fmt.Sprintf("Superuser %q already exists. Skipping creation.", username))
		return false, nil
	} else if !errors.Is(err, data.ErrNotFound) {
		return false, err
	}
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		s.log.Warn(fmt.Sprintf("User with email %q already exists. Skipping creation.", email))
		return false, nil
	} else if !errors.Is(err, data.ErrNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	user := &data.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsStaff:      true,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return false, err
	}
	s.log.Info(fmt.Sprintf("Created superuser %q", username))
	return true, nil
}
