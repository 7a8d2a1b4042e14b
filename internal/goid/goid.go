// Package goid identifies the calling goroutine.
package goid

import "runtime"

// ID returns the ID of the calling goroutine, parsed from the
// "goroutine <id> " header of its stack trace.
// It is meant for detecting reentrant calls, not for goroutine-local storage.
func ID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
