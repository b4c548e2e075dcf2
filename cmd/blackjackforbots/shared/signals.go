package shared

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM
func SetupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), shutdownSignals...)
}

// SetupSignalHandlerWithLogger cancels the returned context on the first
// signal and logs it. A second signal exits immediately, for when draining
// connections hangs.
func SetupSignalHandlerWithLogger(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, shutdownSignals...)

	go func() {
		select {
		case sig := <-sigs:
			logger.Info().Str("signal", sig.String()).Msg("Shutting down, signal again to force")
			cancel()
		case <-ctx.Done():
			signal.Stop(sigs)
			return
		}
		sig := <-sigs
		logger.Warn().Str("signal", sig.String()).Msg("Forced exit")
		os.Exit(1)
	}()

	return ctx, cancel
}
