package testutil

import "github.com/rs/zerolog"

// NopLogger returns a logger that discards everything.
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}
