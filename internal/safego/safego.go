// Package safego starts background goroutines that must not take the server
// down when they panic.
package safego

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Go runs fn on its own goroutine under name. A panic is logged with the
// stack and swallowed.
func Go(name string, fn func()) {
	go run(name, fn)
}

func run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("background job panicked",
				slog.String("job", name),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}
