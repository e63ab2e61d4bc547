package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"admissions-service/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrRoleNotAllowed     = errors.New("role not allowed for self-registration")
	ErrInvalidUsername    = errors.New("username must be at least 3 characters")
)

type Service struct {
	users      user.Repository
	tokens     *TokenService
	allowAdmin bool
}

func NewService(users user.Repository, tokens *TokenService, allowAdminRegistration bool) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		allowAdmin: allowAdminRegistration,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*user.Public, error) {
	role := req.Role
	if role == "" {
		role = user.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrRoleNotAllowed, role)
	}
	if role == user.RoleAdmin && !s.allowAdmin {
		return nil, ErrRoleNotAllowed
	}

	req.Normalize()
	if len([]rune(req.Username)) < 3 {
		return nil, ErrInvalidUsername
	}

	if err := s.ensureAvailable(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	hashed, err := user.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, &user.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  hashed,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	public := created.Public()
	return &public, nil
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return ErrUserExists
	case !errors.Is(err, user.ErrUserNotFound):
		return fmt.Errorf("lookup username: %w", err)
	}

	_, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrUserExists
	case !errors.Is(err, user.ErrUserNotFound):
		return fmt.Errorf("lookup email: %w", err)
	}
	return nil
}

// Login accepts a username or an email as the identifier.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.lookup(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, err
	}
	if !u.IsActive || !user.CheckPassword(u.Password, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token: token,
		User:  u.Public(),
	}, nil
}

func (s *Service) lookup(ctx context.Context, identifier string) (*user.User, error) {
	u, err := s.users.GetByUsername(ctx, identifier)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}

	u, err = s.users.GetByEmail(ctx, identifier)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	return u, err
}
