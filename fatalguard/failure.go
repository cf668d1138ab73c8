package fatalguard

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Failure is the record captured when a guarded region fails.
type Failure struct {
	// ID of the goroutine where the failure happened
	GoroutineID uint64
	// True if the failure happened on the main goroutine
	Primary bool
	// Human-readable name of the goroutine
	Name string
	// Recovered panic value or escaped error
	Value any
	// Call stack at the point of failure, innermost frame first
	Frames []runtime.Frame
}

func newFailure(v any, frames []runtime.Frame) *Failure {
	id := currentGoroutineID()
	return &Failure{
		GoroutineID: id,
		Primary:     id == primaryID,
		Name:        nameOf(id),
		Value:       v,
		Frames:      frames,
	}
}

// Diagnostic returns the text that is written to standard error before the process exits.
func (f *Failure) Diagnostic() string {
	var b strings.Builder
	if !f.Primary {
		b.WriteString("Exception in thread " + f.Name + ":\n")
	}

	// Most recent call last
	b.WriteString("Traceback (most recent call last):\n")
	for i := len(f.Frames) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  File \"%s\", line %d, in %s\n", f.Frames[i].File, f.Frames[i].Line, f.Frames[i].Function)
	}

	b.WriteString(describeValue(f.Value))
	b.WriteByte('\n')
	return b.String()
}

// Final line of the diagnostic
func describeValue(v any) string {
	if err, ok := v.(error); ok {
		return fmt.Sprintf("%T: %s", err, err.Error())
	}
	return fmt.Sprintf("panic: %v", v)
}

// callerFrames returns the stack starting at the caller of the function that invokes callerFrames, skipping skip additional frames.
// When invoked while a panic is unwinding, the frames of the recovery handler and of the runtime's panic machinery are removed, so the first frame is the one that panicked.
func callerFrames(skip int) []runtime.Frame {
	pcs := make([]uintptr, 32)
	var n int
	for {
		n = runtime.Callers(skip+3, pcs)
		if n < len(pcs) {
			break
		}
		pcs = make([]uintptr, 2*len(pcs))
	}

	frames := collectFrames(runtime.CallersFrames(pcs[:n]))
	for i := range frames {
		if frames[i].Function != "runtime.gopanic" {
			continue
		}

		// Also drop runtime helpers that raised the panic, such as runtime.sigpanic or runtime.goPanicIndex
		frames = frames[i+1:]
		for len(frames) > 0 && isRuntimeFrame(frames[0]) {
			frames = frames[1:]
		}
		break
	}

	return frames
}

func isRuntimeFrame(f runtime.Frame) bool {
	return strings.HasPrefix(f.Function, "runtime.") || strings.HasPrefix(f.Function, "internal/runtime/")
}

func collectFrames(it *runtime.Frames) []runtime.Frame {
	frames := make([]runtime.Frame, 0, 16)
	for {
		f, more := it.Next()
		if f.Function != "runtime.goexit" {
			frames = append(frames, f)
		}
		if !more {
			break
		}
	}
	return frames
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// errorFrames returns the stack recorded when err was created, if err or any error it wraps was created by github.com/pkg/errors.
// The innermost stack in the chain is used, as it's the closest to where the error originated.
func errorFrames(err error) []runtime.Frame {
	var st pkgerrors.StackTrace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if tracer, ok := e.(stackTracer); ok {
			st = tracer.StackTrace()
		}
	}
	if len(st) == 0 {
		return nil
	}

	pcs := make([]uintptr, len(st))
	for i, f := range st {
		pcs[i] = uintptr(f)
	}
	return collectFrames(runtime.CallersFrames(pcs))
}
