package fatalguard

import (
	"bytes"
	"runtime"
	"strconv"

	"github.com/alphadose/haxmap"
)

var goroutinePrefix = []byte("goroutine ")

// primaryID is the ID of the main goroutine.
// Package initialization always runs on the main goroutine, so this is captured once at startup.
var primaryID = currentGoroutineID()

// Human-readable names of goroutines running inside a named guard, keyed by goroutine ID
var names = haxmap.New[uint64, string]()

// currentGoroutineID returns the ID of the calling goroutine, parsed from the "goroutine N [status]:" header of its stack trace.
// It returns 0 if the header can't be parsed.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	b := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	i := bytes.IndexByte(b, ' ')
	if i <= 0 {
		return 0
	}

	id, err := strconv.ParseUint(string(b[:i]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// IsPrimary returns true if the caller is running on the main goroutine.
func IsPrimary() bool {
	return currentGoroutineID() == primaryID
}

// CurrentName returns the name of the calling goroutine.
// This is the name of the innermost named guard the goroutine is running in, "main" for the main goroutine, or "goroutine <id>" otherwise.
func CurrentName() string {
	return nameOf(currentGoroutineID())
}

func nameOf(id uint64) string {
	name, ok := names.Get(id)
	switch {
	case ok:
		return name
	case id == primaryID:
		return "main"
	default:
		return "goroutine " + strconv.FormatUint(id, 10)
	}
}
