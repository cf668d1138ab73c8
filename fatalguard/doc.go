// Package fatalguard turns unhandled panics inside a unit of work into immediate termination of the whole process.
//
// In Go, code that recovers panics on behalf of its callers (net/http handlers, worker pools, RPC frameworks) keeps the process alive after a goroutine failed, possibly with corrupted shared state.
// A guarded region is a terminal error boundary: when a panic escapes it, a diagnostic is written to standard error with a single write and the process exits with status 1 via os.Exit, which skips deferred functions in every goroutine.
//
// The package exports two call shapes backed by the same behavior:
//
//   - Scoped block: `defer fatalguard.Enter("worker-1").Exit()` or `defer fatalguard.Recover()` at the top of the region.
//   - Wrapped callable: Wrap, Wrap1, WrapFunc and WrapErr return a function that applies the guard around each invocation and passes results through unchanged.
//
// Go starts a named goroutine that runs inside a guard, and Check terminates on a non-nil error that would otherwise escape the region.
//
// The diagnostic looks like this:
//
//	Exception in thread worker-1:
//	Traceback (most recent call last):
//	  File "/src/app/main.go", line 42, in main.main.func1
//	  File "/src/app/worker.go", line 17, in main.process
//	*errors.errorString: boom
//
// The first line is present only when the failure happens on a goroutine other than the main one.
package fatalguard
