package capture

import "time"

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock создает тикеры таймера записи. В тестах подменяется.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type SystemClock struct{}

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time {
	return s.t.C
}

func (s *systemTicker) Stop() {
	s.t.Stop()
}
