package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

type Servicer interface {
	Register(ctx context.Context, req RegisterRequest) (int64, error)
	Authenticate(ctx context.Context, creds Credentials) (User, error)
}

type Service struct {
	repo      Repository
	validator Validator
	log       *slog.Logger
}

func NewService(repo Repository, validator Validator, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		log:       log,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (int64, error) {
	req.Email = normalizeEmail(req.Email)
	if req.Role == "" {
		req.Role = RolePatient
	}

	if err := s.validator.ValidateRegister(req); err != nil {
		s.log.Debug("validation failed", "email", req.Email, "error", err)
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("Хэш пароля: %w", err)
	}

	return s.repo.Create(ctx, User{
		Email:    req.Email,
		Password: string(hash),
		Role:     req.Role,
	})
}

// Authenticate не различает неизвестный email и неверный пароль.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	creds.Email = normalizeEmail(creds.Email)
	if err := s.validator.ValidateLogin(creds); err != nil {
		return User{}, ErrInvalidAuth
	}

	user, err := s.repo.FindByEmail(ctx, creds.Email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return User{}, fmt.Errorf("find user: %w", err)
		}
		return User{}, ErrInvalidAuth
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidAuth
	}

	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
