package capture

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"golang.org/x/exp/slog"
)

// Permission - результат запроса доступа к микрофону.
type Permission int

const (
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

const confirmPrompt = "This app needs access to your microphone to record audio. Allow?"

// PermissionRequester спрашивает у системы доступ к микрофону.
type PermissionRequester interface {
	Request(ctx context.Context) (bool, error)
}

// Confirmer показывает пользователю подтверждение перед системным запросом.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type PermissionGate struct {
	platform  Platform
	requester PermissionRequester
	confirmer Confirmer
	log       *slog.Logger

	mu    sync.Mutex
	state Permission
}

// NewPermissionGate создает гейт. confirmer может быть nil.
func NewPermissionGate(platform Platform, requester PermissionRequester, confirmer Confirmer, log *slog.Logger) *PermissionGate {
	return &PermissionGate{
		platform:  platform,
		requester: requester,
		confirmer: confirmer,
		log:       log.With(slog.String("component", "permission_gate")),
	}
}

// Check запрашивает доступ. Для web проверка откладывается до GetUserMedia.
func (g *PermissionGate) Check(ctx context.Context) (Permission, error) {
	if g.platform == PlatformWeb {
		g.set(PermissionGranted)
		return PermissionGranted, nil
	}

	if g.confirmer != nil {
		ok, err := g.confirmer.Confirm(ctx, confirmPrompt)
		if err != nil {
			return g.State(), fmt.Errorf("confirm microphone access: %w", err)
		}
		if !ok {
			g.log.Debug("microphone prompt declined")
			g.set(PermissionDenied)
			return PermissionDenied, nil
		}
	}

	granted, err := g.requester.Request(ctx)
	if err != nil {
		return g.State(), fmt.Errorf("request microphone permission: %w", err)
	}

	result := PermissionDenied
	if granted {
		result = PermissionGranted
	}
	g.log.Debug("microphone permission", slog.String("result", result.String()))
	g.set(result)

	return result, nil
}

// Retry - ручной повтор после отказа, без backoff.
func (g *PermissionGate) Retry(ctx context.Context) (Permission, error) {
	return g.Check(ctx)
}

func (g *PermissionGate) State() Permission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *PermissionGate) set(p Permission) {
	g.mu.Lock()
	g.state = p
	g.mu.Unlock()
}

// ExecPermissions считает доступ выданным, если найден бинарник рекордера.
type ExecPermissions struct {
	Binary string
}

func (p ExecPermissions) Request(_ context.Context) (bool, error) {
	if _, err := exec.LookPath(p.Binary); err != nil {
		return false, nil
	}
	return true, nil
}
