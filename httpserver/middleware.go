package httpserver

import (
	"net/http"

	"github.com/italypaleale/go-fatalguard/fatalguard"
)

// Middleware type is a function that takes an http.Handler and returns another http.Handler
type Middleware func(next http.Handler) http.Handler

// MiddlewareFunc type is a function that takes an http.HandlerFunc and returns another http.HandlerFunc
type MiddlewareFunc func(next http.HandlerFunc) http.HandlerFunc

// Use applies middlewares to the handler
func Use(h http.Handler, middlewares ...Middleware) http.Handler {
	for _, middleware := range middlewares {
		h = middleware(h)
	}
	return h
}

// UseFunc applies middlewares (of type http.HandlerFunc) to the handler
func UseFunc(h http.HandlerFunc, middlewares ...MiddlewareFunc) http.HandlerFunc {
	for _, middleware := range middlewares {
		h = middleware(h)
	}
	return h
}

// MiddlewareFatalGuard is a middleware that terminates the process when a handler panics.
// net/http recovers panics in handlers and keeps serving other requests; with this middleware, the panic is reported to stderr and the process exits with status 1 instead.
// While the handler runs, the goroutine is named "http <method> <path>", with the path in its escaped form so the name is always a single line.
// http.ErrAbortHandler is not a failure: it's re-panicked so the server aborts the response as usual.
func MiddlewareFatalGuard() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			guard := fatalguard.Enter("http " + r.Method + " " + r.URL.EscapedPath())
			defer func() {
				rec := recover()
				if rec != nil && rec != http.ErrAbortHandler { //nolint:errorlint
					fatalguard.Fail(rec)
				}

				// Not deferred, so this only releases the name
				guard.Exit()
				if rec != nil {
					panic(rec)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// MiddlewareFuncFatalGuard is the http.HandlerFunc version of MiddlewareFatalGuard.
func MiddlewareFuncFatalGuard() MiddlewareFunc {
	guard := MiddlewareFatalGuard()
	return func(next http.HandlerFunc) http.HandlerFunc {
		return guard(next).ServeHTTP
	}
}
