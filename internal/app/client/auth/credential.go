package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredential = errors.New("credential not found")
	ErrMalformed    = errors.New("malformed token")
)

// Credential - bearer-токен и момент его истечения из claim exp.
// Нулевой ExpiresAt означает токен без срока действия.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// ParseCredential читает exp из JWT без проверки подписи:
// подпись проверяет сервер, клиенту нужен только срок.
func ParseCredential(token string) (Credential, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Credential{}, ErrNoCredential
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	cred := Credential{Token: token}
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}

	return cred, nil
}

// Expired сравнивает срок действия с now.
func (c Credential) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// TokenSource отдает текущий credential. Источник только читается.
type TokenSource interface {
	Credential(ctx context.Context) (Credential, error)
}

// TokenFunc адаптирует функцию к TokenSource.
type TokenFunc func(ctx context.Context) (Credential, error)

func (f TokenFunc) Credential(ctx context.Context) (Credential, error) {
	return f(ctx)
}

// Static возвращает источник с фиксированным credential.
func Static(cred Credential) TokenSource {
	return TokenFunc(func(context.Context) (Credential, error) {
		if cred.Token == "" {
			return Credential{}, ErrNoCredential
		}
		return cred, nil
	})
}
