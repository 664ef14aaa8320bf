// trace.go - optional per-queue transaction tracing
//
// License: GPLv3 or later
//
// Opt-in diagnostic aid (see Session.trace / WithTrace); the core never
// writes here on its own.

package pracc

import "fmt"

// logQueue writes a one-line summary of the queue about to run: which
// operation requested it, how many instructions and stores it carries, and
// which engine will service it.
func (s *Session) logQueue(op string, q *Queue, mode Mode) {
	engine := "sequential"
	if mode == ModeQueued {
		engine = "queued"
	}
	fmt.Fprintf(s.trace, "pracc: %s code=%d stores=%d engine=%s\n", op, q.CodeCount, q.StoreCount, engine)
}
