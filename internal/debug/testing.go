package debug

import (
	"testing"

	"github.com/timandy/routine"
)

var tls = routine.NewThreadLocal[testing.TB]()

// WithTesting redirects Log's output to t.Log for the lifetime of the
// returned restore func, so a failing invariant check surfaces its trace
// inline in `go test -tags debug` output instead of on stderr.
func WithTesting(t testing.TB) func() {
	t.Helper()

	prev := tls.Get()
	tls.Set(t)
	return func() {
		tls.Set(prev)
	}
}
