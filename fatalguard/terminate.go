package fatalguard

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// ExitCode is the status the process exits with after a guarded region fails.
const ExitCode = 1

type terminator struct {
	// Never unlocked: the first goroutine to fail holds it until the process is gone, so concurrent failures can't write
	mu   sync.Mutex
	out  io.Writer
	exit func(code int)
}

var activeTerminator atomic.Pointer[terminator]

func init() {
	activeTerminator.Store(&terminator{
		out:  os.Stderr,
		exit: os.Exit,
	})
}

func (t *terminator) terminate(text string) {
	t.mu.Lock()

	if text != "" {
		// One write for the whole diagnostic
		_, _ = io.WriteString(t.out, text)
	}

	// os.Exit doesn't run deferred functions and doesn't flush buffered writers
	t.exit(ExitCode)
}

// Abort writes text to standard error as a single write, then terminates the process with ExitCode.
// It shares the process-wide lock with failing guards, so at most one diagnostic is ever written.
// text can be empty, in which case nothing is written.
func Abort(text string) {
	activeTerminator.Load().terminate(text)
}

func terminate(f *Failure) {
	activeTerminator.Load().terminate(f.Diagnostic())
}
