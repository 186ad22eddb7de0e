package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"hypercase/internal/domain/user"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims - стандартные утверждения JWT и роль пользователя.
type Claims struct {
	jwt.RegisteredClaims
	Role user.Role `json:"role"`
}

// Principal - пользователь, от имени которого выполняется запрос.
type Principal struct {
	UserID int64
	Role   user.Role
}

type Servicer interface {
	Create(ctx context.Context, u user.User) (user.Session, error)
	Validate(ctx context.Context, token string) (Principal, error)
}

type Service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *slog.Logger
}

func NewService(repo Repository, secret string, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

// WithNow подменяет часы; используется в тестах.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Create(ctx context.Context, u user.User) (user.Session, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	tokenID := uuid.NewString()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: u.Role,
	}).SignedString(s.secret)
	if err != nil {
		return user.Session{}, fmt.Errorf("sign token: %w", err)
	}

	if err := s.repo.Create(ctx, u.ID, tokenID, expiresAt); err != nil {
		return user.Session{}, fmt.Errorf("save session: %w", err)
	}

	return user.Session{Token: token, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

func (s *Service) Validate(ctx context.Context, token string) (Principal, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || claims.ID == "" {
		return Principal{}, ErrInvalidToken
	}

	stored, err := s.repo.Validate(ctx, claims.ID)
	if err != nil {
		s.log.Debug("session lookup failed", "jti", claims.ID, "error", err)
		return Principal{}, ErrInvalidToken
	}
	if stored != userID {
		return Principal{}, ErrInvalidToken
	}

	return Principal{UserID: userID, Role: claims.Role}, nil
}
