package capture

import (
	"fmt"
	"strings"
)

// Platform выбирает вариант записи.
type Platform string

const (
	PlatformNative Platform = "native"
	PlatformWeb    Platform = "web"
)

func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformNative, "":
		return PlatformNative, nil
	case PlatformWeb:
		return PlatformWeb, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// FormatElapsed форматирует секунды как m:ss для таймера.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
