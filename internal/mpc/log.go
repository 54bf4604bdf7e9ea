package mpc

import (
	"log/slog"
	"time"
)

// warnPeriod spaces repeated warnings of the same kind. A controller at
// 30 Hz stuck off-path would otherwise flood the log every cycle.
const warnPeriod = 5 * time.Second

type throttledLogger struct {
	log  *slog.Logger
	last map[string]time.Time
}

func newThrottledLogger() *throttledLogger {
	return &throttledLogger{
		log:  slog.Default().With(slog.String("component", "mpc")),
		last: make(map[string]time.Time),
	}
}

func (t *throttledLogger) Warn(msg string, args ...any) {
	now := time.Now()
	if last, ok := t.last[msg]; ok && now.Sub(last) < warnPeriod {
		return
	}
	t.last[msg] = now
	t.log.Warn(msg, args...)
}
