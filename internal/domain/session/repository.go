package session

import (
	"context"
	"time"
)

// Repository хранит jti выданных токенов; токен без записи недействителен.
type Repository interface {
	Create(ctx context.Context, userID int64, tokenID string, expiresAt time.Time) error
	Validate(ctx context.Context, tokenID string) (int64, error)
}
