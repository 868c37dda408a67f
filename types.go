package accounts

import (
	"context"
	"fmt"
)

// Logger is the minimal leveled logging surface the package needs. Logging is
// observational only; no code path branches on what was or was not logged.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Mailer delivers the one-time passcode out of band. Implementations must
// report failure through the returned error; callers decide whether the
// failure is fatal for their flow.
type Mailer interface {
	SendOTP(ctx context.Context, to, fullName, code string) error
}

// DefaultLogger returns the stdout fallback logger used when no logger is
// injected.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
