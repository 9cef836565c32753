package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// terminationSignals end a command. SIGHUP is included so that closing the
// terminal stops "tail --follow" and "serve" cleanly.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

// SetupContext bounds ctx by timeout. A non-positive timeout leaves ctx
// unbounded; the returned cancel function must still be called.
func SetupContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// SetupSignals returns a context canceled on SIGINT, SIGTERM or SIGHUP.
// A canceled command exits with ExitErrorCanceled; long-running commands
// treat the cancellation as a normal stop.
//
// Returns:
//   - context.Context: A context canceled on signal receipt.
//   - context.CancelFunc: Stops listening for signals (should be deferred).
func SetupSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, terminationSignals...)
}

// SetupLifecycle combines the command timeout and signal handling. The
// context ends at whichever comes first, so a command waiting on a locked
// log file can always be interrupted.
func SetupLifecycle(ctx context.Context, timeout time.Duration) (context.Context, *CancelFuncs) {
	ctx, cancelTimeout := SetupContext(ctx, timeout)
	ctx, stopSignals := SetupSignals(ctx)
	return ctx, &CancelFuncs{CancelTimeout: cancelTimeout, StopSignals: stopSignals}
}

// CancelFuncs holds the cleanup functions returned by SetupLifecycle.
type CancelFuncs struct {
	CancelTimeout context.CancelFunc
	StopSignals   context.CancelFunc
}

// Cleanup stops signal handling and releases the timeout. Safe on a zero value.
func (c *CancelFuncs) Cleanup() {
	if c.StopSignals != nil {
		c.StopSignals()
	}
	if c.CancelTimeout != nil {
		c.CancelTimeout()
	}
}
