//go:build debug

// Package debug includes debugging helpers shared by pkg/rawmem and pkg/btree.
package debug

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/timandy/routine"

	"github.com/packedkv/btree/internal/xflag"
)

// Enabled is true when the binary was built with the debug tag.
const Enabled = true

var (
	debugPattern = xflag.Func("filter", "regexp to filter debug logs by", regexp.Compile)
	nocapture    = flag.Bool("nocapture", false, "disables capturing debug logs as test logs")
)

// Log prints debugging information to stderr, or to the active test's
// logger when running under WithTesting.
//
// context is optional args for fmt.Printf printed before operation, useful
// for identifying which node/cursor/allocator a trace line belongs to.
func Log(context []any, operation string, format string, args ...any) {
	skip := 1
again:
	pc, file, line, _ := runtime.Caller(skip)

	fn := runtime.FuncForPC(pc)
	name := fn.Name()
	name = name[strings.LastIndex(name, ".")+1:]
	if strings.HasPrefix(name, "log") || strings.Contains(name, "Log") {
		skip++
		goto again
	}

	pkg := fn.Name()
	pkg = strings.TrimPrefix(pkg, "github.com/packedkv/btree/")
	pkg = pkg[:strings.Index(pkg, ".")]

	file = filepath.Base(file)

	buf := new(strings.Builder)

	_, _ = fmt.Fprintf(buf, "%s/%s:%d [g%04d", pkg, file, line, routine.Goid())
	if len(context) >= 1 {
		_, _ = fmt.Fprintf(buf, ", "+context[0].(string), context[1:]...)
	}
	_, _ = fmt.Fprintf(buf, "] %s: ", operation)
	_, _ = fmt.Fprintf(buf, format, args...)

	if *debugPattern != nil &&
		!(*debugPattern).MatchString(buf.String()) {
		return
	}

	t := tls.Get()
	if !*nocapture && t != nil {
		t.Log(buf.String())
		return
	}

	_, _ = buf.Write([]byte{'\n'})
	_, _ = os.Stderr.WriteString(buf.String())
	_ = os.Stderr.Sync()
}

// Assert panics if cond is false. Only compiled with cost when the debug
// build tag is set; callers still pay a branch in release builds (see
// nodbg.go), which is intentional: every call site documents an invariant
// spec.md assigns to the caller, not to the mutation itself.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("btree: internal assertion failed: "+format, args...))
	}
}
