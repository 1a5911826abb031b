// Package recovery converts panics into IoErrors. Do wraps every backend
// call a mounted Component makes, so a panic inside a backend
// implementation never crashes the calling goroutine (spec §4.3, §4.4
// wrapping order: recovery innermost, then circuit breaker, then retry),
// and the subtree scan behind mount/unmount event synthesis. DoVoid
// serves callbacks with no error return; observer sink dispatch does not
// go through it, so a panicking sink reaches the goroutine that
// dispatched the event.
//
// Grounded on the teacher's pkg/recovery, scoped down to the panic-to-
// error conversion this repository actually needs — the teacher's
// broader recovery-strategy orchestration (retry/circuit-breaker/
// fallback selection) is covered directly by pkg/retry and
// internal/circuit instead of duplicated here.
package recovery

import (
	"fmt"
	"runtime/debug"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
)

// Do runs fn, converting any panic into an IoError carrying the captured
// stack trace, for component name component.
func Do(component string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = vfserrors.New(vfserrors.KindIoError, fmt.Sprintf("panic recovered: %v", r)).
				WithComponent(component).
				WithContext("stack", string(debug.Stack()))
		}
	}()
	return fn()
}

// DoVoid is Do for callbacks that have no error return of their own (e.g.
// dispatching an event to an observer sink). Any panic is swallowed after
// capture; callers that care can pass onPanic to observe it.
func DoVoid(component string, onPanic func(error), fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if onPanic != nil {
				onPanic(vfserrors.New(vfserrors.KindIoError, fmt.Sprintf("panic recovered: %v", r)).
					WithComponent(component).
					WithContext("stack", string(debug.Stack())))
			}
		}
	}()
	fn()
}
