// Package httpserver contains utilities for HTTP servers using the standard library.
// It includes helpers to chain middlewares and a middleware that turns panics in handlers into fatal failures of the process.
package httpserver
