// Package context carries the daemon-wide context helpers.
package context

import (
	"context"
	"log"
	"os"
	"os/signal"
)

// WithSignalCancel returns a context cancelled on any of the given
// signals, so a SIGINT/SIGTERM turns into a graceful server shutdown.
func WithSignalCancel(ctx context.Context, l *log.Logger, sigs ...os.Signal) (
	context.Context, context.CancelFunc) {
	ctx, cancelFunc := context.WithCancel(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)

	go func() {
		select {
		case sig := <-sigChan:
			l.Printf("Shutdown signal (%s) received", sig)
			cancelFunc()
		case <-ctx.Done():
		}
	}()

	f := func() {
		signal.Stop(sigChan)
		cancelFunc()
	}

	return ctx, f
}
