package scripthost

import (
	"fmt"
	"os"
	"runtime/debug"
)

// InstallPanicHook returns a function the caller must defer at the top of
// a goroutine boundary it owns. If that goroutine panics, the hook writes
// a crash dump (the panic value and a stack trace) to dumpPath, logs it
// critical via hooks, and re-panics so normal Go panic propagation still
// applies.
//
// Go has no process-wide panic hook equivalent to installing a single
// global handler once; a deferred recover at each top-level goroutine is
// the idiomatic substitute.
func InstallPanicHook(dumpPath string, hooks HostHooks) func() {
	return func() {
		r := recover()
		if r == nil {
			return
		}
		msg := fmt.Sprintf("panic: %v\n%s", r, debug.Stack())
		if dumpPath != "" {
			_ = os.WriteFile(dumpPath, []byte(msg), 0o644)
		}
		hooks.logCritical(msg)
		panic(r)
	}
}
