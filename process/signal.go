package process

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// StopContext returns a context that is cancelled when the process receives SIGINT, SIGTERM or
// SIGHUP, or when stop is called.

func StopContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
}
