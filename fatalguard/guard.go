package fatalguard

// Guard is a scoped guard opened with Enter.
type Guard struct {
	id      uint64
	name    string
	prev    string
	hasPrev bool
}

// Enter opens a guarded region on the current goroutine.
// The returned Guard's Exit method must be deferred directly, for example:
//
//	defer fatalguard.Enter("worker-1").Exit()
//
// If name is not empty, the goroutine is known by that name until Exit is called.
func Enter(name string) *Guard {
	g := &Guard{name: name}
	if name != "" {
		g.id = currentGoroutineID()
		g.prev, g.hasPrev = names.Get(g.id)
		names.Set(g.id, name)
	}
	return g
}

// Exit closes the guarded region.
// If a panic is unwinding through the region, Exit writes the diagnostic to standard error and terminates the process; it never returns in that case.
func (g *Guard) Exit() {
	defer g.release()

	if r := recover(); r != nil {
		terminate(newFailure(r, callerFrames(0)))
	}
}

func (g *Guard) release() {
	switch {
	case g.name == "":
		// Nop
	case g.hasPrev:
		names.Set(g.id, g.prev)
	default:
		names.Del(g.id)
	}
}

// Recover is the anonymous form of Enter(""). It must be deferred directly:
//
//	defer fatalguard.Recover()
func Recover() {
	if r := recover(); r != nil {
		terminate(newFailure(r, callerFrames(0)))
	}
}

// Fail terminates the process for a value the caller already obtained from recover().
// It's meant for recovery handlers that need to inspect the value before deciding it's fatal.
func Fail(v any) {
	terminate(newFailure(v, callerFrames(0)))
}

// Check terminates the process if err is not nil.
// If err was created with github.com/pkg/errors, the stack where it originated is reported; otherwise, the stack of the caller.
func Check(err error) {
	if err == nil {
		return
	}

	frames := errorFrames(err)
	if len(frames) == 0 {
		frames = callerFrames(0)
	}
	terminate(newFailure(err, frames))
}

// Go runs fn in a new goroutine named name, inside a guarded region.
func Go(name string, fn func()) {
	go func() {
		defer Enter(name).Exit()
		fn()
	}()
}

// Wrap returns a function that invokes fn inside a guarded region and returns its result.
// Functions with more arguments than Wrap1 and Wrap2 accept can be wrapped by closing over them:
//
//	fatalguard.Wrap(func() T { return f(a, b, c) })
func Wrap[T any](fn func() T) func() T {
	return func() T {
		defer Recover()
		return fn()
	}
}

// Wrap1 returns a function that invokes fn with its argument inside a guarded region and returns its result.
func Wrap1[A, T any](fn func(A) T) func(A) T {
	return func(arg A) T {
		defer Recover()
		return fn(arg)
	}
}

// Wrap2 returns a function that invokes fn with its two arguments inside a guarded region and returns its result.
func Wrap2[A, B, T any](fn func(A, B) T) func(A, B) T {
	return func(a A, b B) T {
		defer Recover()
		return fn(a, b)
	}
}

// WrapFunc returns a function that invokes fn inside a guarded region.
func WrapFunc(fn func()) func() {
	return func() {
		defer Recover()
		fn()
	}
}

// WrapErr returns a function that invokes fn inside a guarded region.
// A non-nil error returned by fn is treated as a failure escaping the region, as with Check.
func WrapErr[T any](fn func() (T, error)) func() T {
	return func() T {
		defer Recover()
		v, err := fn()
		Check(err)
		return v
	}
}
