// Package shutdown provides the process-wide shutdown coordinator
// used by main and by any component that detects an unrecoverable
// condition.
package shutdown

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
)

// Shutdown cancels the cancellation token and then exits the process
// immediately; it does not wait for goroutines holding the token to
// return.
func Shutdown(cancel context.CancelFunc) {
	cancel()
	log.Info().Msg("shutdown signal processed, exiting")
	os.Exit(0)
}

func ShutdownWithError(cancel context.CancelFunc, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	Shutdown(cancel)
}
