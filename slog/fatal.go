package slog

import (
	"log/slog"

	"github.com/italypaleale/go-fatalguard/fatalguard"
)

// Replaced in tests
var abortFn = fatalguard.Abort

// FatalError logs msg with err at the error level, then terminates the process with exit code 1.
// Deferred functions are not executed.
// If log is nil, the default logger is used.
func FatalError(log *slog.Logger, msg string, err error) {
	if log == nil {
		log = slog.Default()
	}

	log.Error(msg, slog.Any("error", err))
	abortFn("")
}
