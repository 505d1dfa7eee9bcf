// Package safego launches background goroutines that survive panics.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go runs fn on a new goroutine under a recover guard. A panic inside fn is
// logged with its stack instead of taking down the process. Every long-lived
// goroutine in this service (sweepers, the metrics listener) starts through
// here so a panic never silently removes a background worker.
func Go(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("background goroutine panicked",
					"goroutine", name,
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
