// Package xflag provides small helpers for registering flag.Flag values
// without needing a package-level init func.
package xflag

import (
	"flag"
	"sync"
)

var parsed = sync.OnceValue(func() map[string]struct{} {
	m := make(map[string]struct{})
	flag.Visit(func(f *flag.Flag) { m[f.Name] = struct{}{} })
	return m
})

// Func is like flag.Func, but allocates its own storage for the return
// value instead of requiring the caller to declare a package-level var.
func Func[T any](name, usage string, fn func(string) (T, error)) *T {
	v := new(T)
	flag.Func(name, usage, func(s string) (err error) {
		*v, err = fn(s)
		return err
	})
	return v
}

// Parsed returns whether the given flag was present on the command line.
func Parsed(name string) bool {
	if !flag.Parsed() {
		return false
	}
	_, ok := parsed()[name]
	return ok
}
