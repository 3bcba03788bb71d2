package runtime

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ShutdownStep is one named teardown action run by Shutdown.
type ShutdownStep struct {
	Name string
	Fn   func(context.Context) error
}

// Shutdown runs steps in order under a shared deadline, logging failures and carrying on.
func Shutdown(logger *slog.Logger, timeout time.Duration, steps ...ShutdownStep) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, step := range steps {
		if step.Fn == nil {
			continue
		}
		if err := step.Fn(ctx); err != nil {
			logger.Warn("shutdown step failed", "step", step.Name, "err", err)
		}
	}
}
